package recast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PbToFb converts a cross-section in pb times a luminosity in fb^-1 to events
const PbToFb = 1000.0

// Tag selects which scenario a 95% limit is computed for
type Tag string

const (
	// TagExpected treats the background expectation as the observation
	TagExpected Tag = "exp"
	// TagObserved uses the observed event count
	TagObserved Tag = "obs"
)

// Sig95Status discriminates the outcome of a limit computation
type Sig95Status int

const (
	Sig95Unset Sig95Status = iota
	// Sig95NoEfficiency means no event survives the cuts; no limit exists
	Sig95NoEfficiency
	// Sig95SolverFailed means the root finder gave up
	Sig95SolverFailed
	Sig95OK
)

// Sig95 is the cross-section (pb) excluded at 95% CL for one region
type Sig95 struct {
	Status Sig95Status
	Value  float64
}

// Sig95Limit builds a successful limit
func Sig95Limit(xsection float64) Sig95 {
	return Sig95{Status: Sig95OK, Value: xsection}
}

// Sig95NoLimit marks a region without efficiency
func Sig95NoLimit() Sig95 {
	return Sig95{Status: Sig95NoEfficiency, Value: -1}
}

// Sig95Failed marks a region whose root finding failed
func Sig95Failed() Sig95 {
	return Sig95{Status: Sig95SolverFailed, Value: -1}
}

// OK reports whether a limit was found
func (s Sig95) OK() bool {
	return s.Status == Sig95OK
}

// String renders the limit the way the CLs table prints it
func (s Sig95) String() string {
	switch s.Status {
	case Sig95OK, Sig95SolverFailed:
		return FormatFixed(s.Value)
	default:
		return "-1"
	}
}

// FormatFixed renders a number with exactly seven decimals
func FormatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}

// RegionData holds the counts and results of one signal region
type RegionData struct {
	Nobs    float64
	Nb      float64
	DeltaNb float64

	// weighted event counts before and after the region's cuts
	N0 float64
	Nf float64

	S95Exp Sig95
	S95Obs Sig95
	CLs    float64
	RSR    float64
	Best   bool
}

// Efficiency is Nf/N0, clamped at zero
func (d *RegionData) Efficiency() float64 {
	if d.N0 <= 0 {
		return 0
	}
	eff := d.Nf / d.N0
	if eff < 0 {
		return 0
	}
	return eff
}

// StatUncertainty is the binomial error on the efficiency
func (d *RegionData) StatUncertainty() float64 {
	if d.N0 <= 0 {
		return 0
	}
	eff := d.Efficiency()
	variance := eff * (1 - eff) / d.N0
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// SignalYield converts a cross-section in pb into an expected event count
func (d *RegionData) SignalYield(xsection, lumi float64) float64 {
	if d.N0 <= 0 {
		return 0
	}
	return xsection * lumi * PbToFb * d.Nf / d.N0
}

// Observed returns the count treated as the observation for a tag
func (d *RegionData) Observed(tag Tag) float64 {
	if tag == TagExpected {
		return d.Nb
	}
	return d.Nobs
}

// SetSig95 stores a limit under the given tag
func (d *RegionData) SetSig95(tag Tag, s Sig95) {
	if tag == TagExpected {
		d.S95Exp = s
		return
	}
	d.S95Obs = s
}

// RegionSet is the ordered collection of signal regions of one analysis
type RegionSet struct {
	ids  []string
	data map[string]*RegionData
}

// NewRegionSet creates an empty region set
func NewRegionSet() *RegionSet {
	return &RegionSet{data: make(map[string]*RegionData)}
}

// Add appends a region; duplicate identifiers are rejected
func (s *RegionSet) Add(id string, d RegionData) error {
	if _, ok := s.data[id]; ok {
		return fmt.Errorf("region %q defined twice", id)
	}
	s.ids = append(s.ids, id)
	dd := d
	s.data[id] = &dd
	return nil
}

// IDs returns the region identifiers in declaration order
func (s *RegionSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Get returns the mutable data of a region
func (s *RegionSet) Get(id string) (*RegionData, bool) {
	d, ok := s.data[id]
	return d, ok
}

// Len returns the number of regions
func (s *RegionSet) Len() int {
	return len(s.ids)
}

// Each visits regions in declaration order
func (s *RegionSet) Each(fn func(id string, d *RegionData) error) error {
	for _, id := range s.ids {
		if err := fn(id, s.data[id]); err != nil {
			return err
		}
	}
	return nil
}

// Analysis is one recast experimental search
type Analysis struct {
	ID      string
	Lumi    float64 // fb^-1
	Regions *RegionSet
}

var regionNameReplacer = strings.NewReplacer(
	"/", "_slash_",
	"->", "_to_",
	">=", "_greater_than_or_equal_to_",
	">", "_greater_than_",
	"<=", "_smaller_than_or_equal_to_",
	"<", "_smaller_than_",
	" ", "_",
	",", "_",
	"+", "_",
	"-", "_",
	"(", "_lp_",
	")", "_rp_",
)

// CleanRegionName maps a region identifier to the file-safe name used for
// its cutflow file. Semicolons are kept: they separate combined regions.
func CleanRegionName(name string) string {
	return regionNameReplacer.Replace(name)
}
