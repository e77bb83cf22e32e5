package cls

import (
	"errors"
	"fmt"

	"gorecast/domain/recast"
	"gorecast/internal"
	"gorecast/internal/profiling"
	"gorecast/ports"
)

// DefaultNumToys is the number of toy experiments per CLs evaluation
const DefaultNumToys = 100000

// Statistic evaluates the CLs exclusion confidence of a signal hypothesis
// with toy Monte Carlo experiments
type Statistic struct {
	sampler ports.ToySampler
	numToys int
	logger  *internal.Logger
}

// NewStatistic creates a toy statistic drawing numToys experiments per call
func NewStatistic(sampler ports.ToySampler, numToys int, logger *internal.Logger) *Statistic {
	if numToys <= 0 {
		numToys = DefaultNumToys
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Statistic{sampler: sampler, numToys: numToys, logger: logger}
}

// NumToys returns the number of toys drawn per evaluation
func (s *Statistic) NumToys() int {
	return s.numToys
}

// Compute returns 1 - CLs for an observed count given the background
// expectation, its Gaussian uncertainty and the signal yield. The result is
// in [0, 1]; higher means more excluded.
func (s *Statistic) Compute(observed, bkg, bkgErr, signal float64) (float64, error) {
	bkgYields, err := s.sampler.Normal(bkg, bkgErr, s.numToys)
	if err != nil {
		return 0, s.wrap(err)
	}
	// negative yields from the gaussian tail are unphysical
	bkgYields = positive(bkgYields)

	var pB float64
	if len(bkgYields) > 0 {
		bkgToys, err := s.sampler.Poisson(bkgYields)
		if err != nil {
			return 0, s.wrap(err)
		}
		if pB, err = s.sampler.WeakPercentile(bkgToys, observed); err != nil {
			return 0, s.wrap(err)
		}
		s.trace("background-only", bkgToys)
	}

	sbYields := make([]float64, len(bkgYields))
	for i, b := range bkgYields {
		sbYields[i] = b + signal
	}
	sbYields = positive(sbYields)
	if len(sbYields) == 0 {
		return 0, nil
	}

	sbToys, err := s.sampler.Poisson(sbYields)
	if err != nil {
		return 0, s.wrap(err)
	}
	pSB, err := s.sampler.WeakPercentile(sbToys, observed)
	if err != nil {
		return 0, s.wrap(err)
	}
	s.trace("signal+background", sbToys)

	if pSB > pB {
		return 0, nil
	}
	// pB == 0 forces pSB == 0 here; the ratio is undefined and treated as no exclusion
	if pB == 0 {
		return 0, nil
	}
	return 1 - pSB/pB, nil
}

func (s *Statistic) wrap(err error) error {
	if errors.Is(err, ports.ErrSamplerUnavailable) {
		return fmt.Errorf("%w: %v", recast.ErrCapabilityUnavailable, err)
	}
	return fmt.Errorf("toy generation: %w", err)
}

func (s *Statistic) trace(label string, toys []float64) {
	if s.logger.GetLevel() < internal.LogLevelTrace {
		return
	}
	if summary, err := profiling.SummarizeToys(toys); err == nil {
		s.logger.Trace("%s toys: %s", label, summary)
	}
}

func positive(values []float64) []float64 {
	out := values[:0]
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}
