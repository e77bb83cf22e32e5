package ports

import "errors"

// ErrSamplerUnavailable is the single failure mode of a ToySampler that
// cannot draw toys in this environment
var ErrSamplerUnavailable = errors.New("toy sampler unavailable")

// ToySampler draws the pseudo-experiments of a CLs evaluation
type ToySampler interface {
	// Normal draws n values from a Gaussian with the given mean and width
	Normal(mean, sigma float64, n int) ([]float64, error)

	// Poisson draws one count per mean
	Poisson(means []float64) ([]float64, error)

	// WeakPercentile returns the fraction of samples that are <= score
	WeakPercentile(samples []float64, score float64) (float64, error)
}
