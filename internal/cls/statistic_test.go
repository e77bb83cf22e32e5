package cls

import (
	"math"
	"testing"

	"gorecast/adapters/toys"
	"gorecast/domain/recast"
	"gorecast/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticScriptedToys(t *testing.T) {
	sampler := &testkit.ScriptedSampler{NormalDraws: []float64{2, 4, -1, 6}}
	stat := NewStatistic(sampler, 4, nil)

	// background toys {2,4,6}: p_b = 2/3; s+b toys {4,6,8}: p_sb = 1/3
	got, err := stat.Compute(4, 4, 1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)
	assert.Equal(t, 1, sampler.Calls)
}

func TestStatisticNoExclusionWhenSignalBeatsBackground(t *testing.T) {
	// a negative signal hypothesis lowers the s+b counts so p_sb > p_b
	sampler := &testkit.ScriptedSampler{NormalDraws: []float64{3, 5, 7}}
	stat := NewStatistic(sampler, 3, nil)

	got, err := stat.Compute(5, 5, 1, -2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestStatisticDegenerateCases(t *testing.T) {
	t.Run("all signal+background yields non-physical", func(t *testing.T) {
		sampler := &testkit.ScriptedSampler{NormalDraws: []float64{1, 2}}
		got, err := NewStatistic(sampler, 2, nil).Compute(1, 1, 0.5, -5)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("no physical background draw", func(t *testing.T) {
		sampler := &testkit.ScriptedSampler{NormalDraws: []float64{-1, -2, 0}}
		got, err := NewStatistic(sampler, 3, nil).Compute(1, -1, 0.5, 3)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("p_b and p_sb both zero", func(t *testing.T) {
		sampler := &testkit.ScriptedSampler{NormalDraws: []float64{2, 3}}
		got, err := NewStatistic(sampler, 2, nil).Compute(0.5, 2, 1, 1)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(got))
		assert.Equal(t, 0.0, got)
	})
}

func TestStatisticUnavailableSampler(t *testing.T) {
	stat := NewStatistic(toys.Unavailable{}, 10, nil)
	_, err := stat.Compute(5, 4, 1, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, recast.ErrCapabilityUnavailable)
}

func TestStatisticZeroSignalHasNoExclusionPower(t *testing.T) {
	cases := []struct{ observed, bkg, bkgErr float64 }{
		{5, 4, 1},
		{0, 0.5, 0.2},
		{12, 10, 3},
		{100, 90, 10},
	}
	for i, c := range cases {
		stat := NewStatistic(toys.NewSeededSampler(uint64(100+i)), 20000, nil)
		got, err := stat.Compute(c.observed, c.bkg, c.bkgErr, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, got, 0.03, "case %+v", c)
	}
}

func TestStatisticIsBoundedAndMonotonic(t *testing.T) {
	stat := NewStatistic(toys.NewSeededSampler(2024), 20000, nil)
	signals := []float64{0, 1, 2, 5, 10, 20, 50}

	previous := -1.0
	for _, s := range signals {
		got, err := stat.Compute(5, 4, 1, s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
		assert.GreaterOrEqual(t, got, previous-0.02, "signal %v", s)
		previous = got
	}
	assert.Greater(t, previous, 0.99, "a large signal is excluded")
}

func TestNewStatisticDefaults(t *testing.T) {
	stat := NewStatistic(toys.NewSeededSampler(1), 0, nil)
	assert.Equal(t, DefaultNumToys, stat.NumToys())
}
