package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorecast/adapters/rng"
	"gorecast/adapters/toys"
	"gorecast/ports"
)

// TestKit provides testing utilities and fixtures for recast job layouts
type TestKit struct {
	Dirname string // job directory holding Output/
	PADDir  string // analysis framework directory holding the info files
}

// NewTestKit creates a job layout below root
func NewTestKit(root string) (*TestKit, error) {
	kit := &TestKit{
		Dirname: filepath.Join(root, "job"),
		PADDir:  filepath.Join(root, "PAD"),
	}
	for _, dir := range []string{
		filepath.Join(kit.Dirname, "Output"),
		kit.AnalyzerDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return kit, nil
}

// RNGAdapter returns an RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.NewSeededAdapter()
}

// AnalyzerDir is where the info files of the analyses live
func (t *TestKit) AnalyzerDir() string {
	return filepath.Join(t.PADDir, "Build", "SampleAnalyzer", "User", "Analyzer")
}

// CutflowDir is where the cutflows of one analysis on one dataset live
func (t *TestKit) CutflowDir(dataset, analysis string) string {
	return filepath.Join(t.Dirname, "Output", dataset, analysis, "Cutflows")
}

// WriteInfoFile stores an info document for an analysis
func (t *TestKit) WriteInfoFile(analysis, content string) (string, error) {
	path := filepath.Join(t.AnalyzerDir(), analysis+".info")
	return path, os.WriteFile(path, []byte(content), 0o644)
}

// WriteCutflow stores the cutflow of one region (file name as given)
func (t *TestKit) WriteCutflow(dataset, analysis, region, content string) (string, error) {
	dir := t.CutflowDir(dataset, analysis)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, region+".saf")
	return path, os.WriteFile(path, []byte(content), 0o644)
}

// InfoRegion is one region entry of a generated info document
type InfoRegion struct {
	ID      string
	Type    string
	Nobs    float64
	Nb      float64
	DeltaNb float64
}

// InfoXML renders an info document
func InfoXML(analysis string, lumi float64, regions ...InfoRegion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<analysis id=%q>\n", analysis)
	fmt.Fprintf(&b, "  <lumi>%g</lumi>\n", lumi)
	for _, r := range regions {
		if r.Type != "" {
			fmt.Fprintf(&b, "  <region type=%q id=%q>\n", r.Type, r.ID)
		} else {
			fmt.Fprintf(&b, "  <region id=%q>\n", r.ID)
		}
		fmt.Fprintf(&b, "    <nobs>%g</nobs>\n    <nb>%g</nb>\n    <deltanb>%g</deltanb>\n", r.Nobs, r.Nb, r.DeltaNb)
		b.WriteString("  </region>\n")
	}
	b.WriteString("</analysis>\n")
	return b.String()
}

// CutflowSAF renders a cutflow file in the analysis framework layout, with
// the weight sums and their companion fields for the initial and final counters
func CutflowSAF(n0, n0Extra, nf, nfExtra float64) string {
	return fmt.Sprintf(`<SAFheader>
</SAFheader>

<InitialCounter>
"Initial number of events"      #
1000 0                          # nentries
%g %g                           # sum of weights
%g %g                           # sum of weights^2
</InitialCounter>

<Counter>
"MET > 200 GeV"                 # 1st cut
50 0                            # nentries
%g %g                           # sum of weights
%g %g                           # sum of weights^2
</Counter>
`, n0, n0Extra, n0*n0, 0.0, nf, nfExtra, nf*nf, 0.0)
}

// ScriptedSampler returns preset draws; percentiles use the real algorithm
type ScriptedSampler struct {
	NormalDraws []float64
	PoissonFn   func(means []float64) []float64
	Calls       int
}

var _ ports.ToySampler = (*ScriptedSampler)(nil)

// Normal returns a copy of the preset draws, ignoring the arguments
func (s *ScriptedSampler) Normal(mean, sigma float64, n int) ([]float64, error) {
	s.Calls++
	out := make([]float64, len(s.NormalDraws))
	copy(out, s.NormalDraws)
	return out, nil
}

// Poisson applies PoissonFn, or returns the means unchanged
func (s *ScriptedSampler) Poisson(means []float64) ([]float64, error) {
	if s.PoissonFn != nil {
		return s.PoissonFn(means), nil
	}
	out := make([]float64, len(means))
	copy(out, means)
	return out, nil
}

// WeakPercentile delegates to the gonum sampler
func (s *ScriptedSampler) WeakPercentile(samples []float64, score float64) (float64, error) {
	return toys.NewSeededSampler(0).WeakPercentile(samples, score)
}
