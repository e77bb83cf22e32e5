package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random sources for deterministic toy generation
type RNGPort interface {
	// SeededSource creates a deterministic random source for a named operation
	SeededSource(ctx context.Context, name string, seed uint64) (rand.Source, error)

	// Stream creates a deterministic source for one analysis of one dataset.
	// The same run, dataset and analysis always produce the same toys,
	// whatever order analyses are processed in.
	Stream(ctx context.Context, runID, dataset, analysis string, baseSeed uint64) (rand.Source, error)
}
