package toys

import "gorecast/ports"

// Unavailable is the sampler used when toy generation cannot run
type Unavailable struct{}

var _ ports.ToySampler = Unavailable{}

func (Unavailable) Normal(float64, float64, int) ([]float64, error) {
	return nil, ports.ErrSamplerUnavailable
}

func (Unavailable) Poisson([]float64) ([]float64, error) {
	return nil, ports.ErrSamplerUnavailable
}

func (Unavailable) WeakPercentile([]float64, float64) (float64, error) {
	return 0, ports.ErrSamplerUnavailable
}
