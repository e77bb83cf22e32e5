package rng

import (
	"context"
	"math/rand/v2"

	"gorecast/ports"
)

// SeededAdapter implements ports.RNGPort with PCG sources
type SeededAdapter struct{}

var _ ports.RNGPort = (*SeededAdapter)(nil)

// NewSeededAdapter creates an RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededSource creates a deterministic source for a named operation
func (r *SeededAdapter) SeededSource(ctx context.Context, name string, seed uint64) (rand.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.NewPCG(seed, uint64(hashString(name))), nil
}

// Stream creates a deterministic source for one analysis of one dataset
func (r *SeededAdapter) Stream(ctx context.Context, runID, dataset, analysis string, baseSeed uint64) (rand.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Mix the identifiers into the seed so each analysis gets its own stream
	seed := baseSeed
	if runID != "" {
		seed = uint64(hashString(runID)) + seed
	}
	if dataset != "" {
		seed = uint64(hashString(dataset))<<32 + seed
	}
	stream := uint64(hashString(analysis))
	return rand.NewPCG(seed, stream), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
