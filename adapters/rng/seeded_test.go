package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstValues(t *testing.T, src interface{ Uint64() uint64 }, n int) []uint64 {
	t.Helper()
	out := make([]uint64, n)
	for i := range out {
		out[i] = src.Uint64()
	}
	return out
}

func TestStreamIsDeterministicPerAnalysis(t *testing.T) {
	ctx := context.Background()
	r := NewSeededAdapter()

	a1, err := r.Stream(ctx, "run", "ttbar", "atlas_susy_2013_04", 42)
	require.NoError(t, err)
	a2, err := r.Stream(ctx, "run", "ttbar", "atlas_susy_2013_04", 42)
	require.NoError(t, err)
	b, err := r.Stream(ctx, "run", "ttbar", "cms_sus_13_012", 42)
	require.NoError(t, err)
	c, err := r.Stream(ctx, "run", "wjets", "atlas_susy_2013_04", 42)
	require.NoError(t, err)

	first := firstValues(t, a1, 4)
	assert.Equal(t, first, firstValues(t, a2, 4))
	assert.NotEqual(t, first, firstValues(t, b, 4))
	assert.NotEqual(t, first, firstValues(t, c, 4))
}

func TestSeededSource(t *testing.T) {
	ctx := context.Background()
	r := NewSeededAdapter()

	s1, err := r.SeededSource(ctx, "toy", 1)
	require.NoError(t, err)
	s2, err := r.SeededSource(ctx, "toy", 1)
	require.NoError(t, err)
	assert.Equal(t, firstValues(t, s1, 3), firstValues(t, s2, 3))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.SeededSource(cancelled, "toy", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashString(t *testing.T) {
	assert.Equal(t, uint32(5381), hashString(""))
	assert.NotEqual(t, hashString("SR1"), hashString("SR2"))
}
