package cls

import (
	"fmt"

	"gorecast/domain/recast"
	"gorecast/internal"
)

// ExclusionCL is the confidence level a 95% limit is solved for
const ExclusionCL = 0.95

// DefaultMaxBracketSteps caps the decades explored while bracketing a limit
const DefaultMaxBracketSteps = 50

// Solver derives 95% CL cross-section limits and per-region CLs values
type Solver struct {
	stat            *Statistic
	maxBracketSteps int
	logger          *internal.Logger
}

// SolverOption configures a Solver
type SolverOption func(*Solver)

// WithMaxBracketSteps bounds the shrink and grow loops of the bracketing
func WithMaxBracketSteps(n int) SolverOption {
	return func(s *Solver) {
		if n > 0 {
			s.maxBracketSteps = n
		}
	}
}

// WithLogger sets the solver logger
func WithLogger(logger *internal.Logger) SolverOption {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSolver creates a solver around a toy statistic
func NewSolver(stat *Statistic, opts ...SolverOption) *Solver {
	s := &Solver{
		stat:            stat,
		maxBracketSteps: DefaultMaxBracketSteps,
		logger:          internal.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeSig95 stores, for every region of the analysis, the cross-section
// in pb at which CLs reaches 95% under the given scenario. Regions without
// efficiency get no limit and failed root finding gets a -1 limit; only an
// unavailable toy sampler aborts the computation.
func (s *Solver) ComputeSig95(a *recast.Analysis, tag recast.Tag) error {
	return a.Regions.Each(func(id string, d *recast.RegionData) error {
		if d.Nf <= 0 || d.N0 <= 0 {
			d.SetSig95(tag, recast.Sig95NoLimit())
			return nil
		}

		limit, err := s.solveRegion(id, d, a.Lumi, tag)
		if err != nil {
			if recast.IsCapabilityError(err) {
				return err
			}
			s.logger.Warn("%s: no %s limit for region %s: %v", a.ID, tag, id, err)
			d.SetSig95(tag, recast.Sig95Failed())
			return nil
		}
		s.logger.Debug("region %s, s95%s = %g pb", id, tag, limit)
		d.SetSig95(tag, recast.Sig95Limit(limit))
		return nil
	})
}

func (s *Solver) solveRegion(id string, d *recast.RegionData, lumi float64, tag recast.Tag) (float64, error) {
	observed := d.Observed(tag)
	evaluate := func(nsignal float64) (float64, error) {
		return s.stat.Compute(observed, d.Nb, d.DeltaNb, nsignal)
	}

	// CLs grows with the signal yield, so a bracket is found by moving the
	// lower bound towards zero signal and the upper bound away from it
	unitYield := d.SignalYield(1, lumi)
	low, nsLow := 1.0, unitYield
	for step := 0; ; step++ {
		v, err := evaluate(nsLow)
		if err != nil {
			return 0, err
		}
		if v <= ExclusionCL {
			break
		}
		if step >= s.maxBracketSteps {
			return 0, recast.NewSolverError(id, fmt.Sprintf("no lower bound after %d steps", step))
		}
		s.logger.Debug("region %s, lower bound = %g", id, low)
		nsLow *= 0.1
		low *= 0.1
	}

	high, nsHigh := 1.0, unitYield
	for step := 0; ; step++ {
		v, err := evaluate(nsHigh)
		if err != nil {
			return 0, err
		}
		if v >= ExclusionCL {
			break
		}
		if step >= s.maxBracketSteps {
			return 0, recast.NewSolverError(id, fmt.Sprintf("no upper bound after %d steps", step))
		}
		s.logger.Debug("region %s, upper bound = %g", id, high)
		nsHigh *= 10
		high *= 10
	}

	f := func(xsection float64) (float64, error) {
		v, err := evaluate(d.SignalYield(xsection, lumi))
		if err != nil {
			return 0, err
		}
		return v - ExclusionCL, nil
	}
	root, err := Brent(f, low, high, low/100, DefaultRelTol, DefaultMaxIters)
	if err != nil {
		if recast.IsCapabilityError(err) {
			return 0, err
		}
		return 0, recast.NewSolverError(id, err.Error())
	}
	return root, nil
}

// ComputeCLs evaluates every region at a given signal cross-section (pb):
// its CLs, its ratio to the expected 95% limit yield, and which single
// region has the highest ratio.
func (s *Solver) ComputeCLs(a *recast.Analysis, xsection float64) error {
	rMax := -1.0
	var best *recast.RegionData

	return a.Regions.Each(func(id string, d *recast.RegionData) error {
		nsignal := d.SignalYield(xsection, a.Lumi)
		rSR, value := -1.0, 0.0
		if nsignal > 0 {
			if d.S95Exp.OK() {
				if n95 := d.SignalYield(d.S95Exp.Value, a.Lumi); n95 > 0 {
					rSR = nsignal / n95
				}
			}
			v, err := s.stat.Compute(d.Nobs, d.Nb, d.DeltaNb, nsignal)
			if err != nil {
				if recast.IsCapabilityError(err) {
					return err
				}
				s.logger.Warn("%s: CLs evaluation failed for region %s: %v", a.ID, id, err)
			} else {
				value = v
			}
		}

		d.RSR = rSR
		d.CLs = value
		d.Best = false
		if rSR > rMax {
			if best != nil {
				best.Best = false
			}
			d.Best = true
			best = d
			rMax = rSR
		}
		return nil
	})
}
