package toys

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gorecast/ports"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GonumSampler draws toys from gonum distributions over a single source
type GonumSampler struct {
	src rand.Source
}

var _ ports.ToySampler = (*GonumSampler)(nil)

// NewGonumSampler creates a sampler drawing from src
func NewGonumSampler(src rand.Source) *GonumSampler {
	return &GonumSampler{src: src}
}

// NewSeededSampler creates a sampler over a PCG source
func NewSeededSampler(seed uint64) *GonumSampler {
	return NewGonumSampler(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Normal draws n Gaussian values
func (g *GonumSampler) Normal(mean, sigma float64, n int) ([]float64, error) {
	if sigma < 0 {
		return nil, fmt.Errorf("negative gaussian width %g", sigma)
	}
	if n < 0 {
		return nil, fmt.Errorf("negative sample size %d", n)
	}
	dist := distuv.Normal{Mu: mean, Sigma: sigma, Src: g.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out, nil
}

// Poisson draws one count per mean; every mean must be positive
func (g *GonumSampler) Poisson(means []float64) ([]float64, error) {
	out := make([]float64, len(means))
	for i, lambda := range means {
		if lambda <= 0 {
			return nil, fmt.Errorf("non-positive poisson mean %g at index %d", lambda, i)
		}
		out[i] = distuv.Poisson{Lambda: lambda, Src: g.src}.Rand()
	}
	return out, nil
}

// WeakPercentile is the empirical CDF of samples evaluated at score
func (g *GonumSampler) WeakPercentile(samples []float64, score float64) (float64, error) {
	return weakPercentile(samples, score), nil
}

func weakPercentile(samples []float64, score float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return stat.CDF(score, stat.Empirical, sorted, nil)
}
