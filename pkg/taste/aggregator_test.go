package taste

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bonfito/billie/pkg/feature"
)

func vec(x float64) feature.Vector {
	var v feature.Vector
	for i := range v {
		v[i] = x
	}
	return v
}

func TestAvalancheFirstItemReplacesContext(t *testing.T) {
	prev := vec(0.2)
	v := vec(0.9)

	assert.Equal(t, v, Avalanche(prev, v, 1))
	assert.Equal(t, v, Avalanche(prev, v, 0))
}

func TestAvalancheStaysOnSegment(t *testing.T) {
	prev := vec(0.2)
	v := vec(0.9)

	for n := 2; n <= 50; n++ {
		out := Avalanche(prev, v, n)
		for i := range out {
			assert.GreaterOrEqual(t, out[i], prev[i], "n=%d dim=%d", n, i)
			assert.LessOrEqual(t, out[i], v[i], "n=%d dim=%d", n, i)
		}
	}
}

func TestAvalancheInfluenceShrinksWithN(t *testing.T) {
	prev := vec(0.5)
	v := vec(1.0)

	early := Avalanche(prev, v, 2)
	late := Avalanche(prev, v, 40)
	assert.Greater(t, early[0]-prev[0], late[0]-prev[0])
}

func TestWeightedMeanUniformEqualsMean(t *testing.T) {
	entries := []Weighted{
		{Vector: vec(0.2), Weight: 1},
		{Vector: vec(0.4), Weight: 1},
		{Vector: vec(0.6), Weight: 1},
	}
	out := WeightedMean(entries)
	for i := range out {
		assert.InDelta(t, 0.4, out[i], 1e-12)
	}
}

func TestWeightedMeanZeroWeightsFallBackToMean(t *testing.T) {
	entries := []Weighted{
		{Vector: vec(0.2)},
		{Vector: vec(0.8)},
	}
	out := WeightedMean(entries)
	for i := range out {
		assert.InDelta(t, 0.5, out[i], 1e-12)
	}
}

func TestWeightedMeanRespectsWeights(t *testing.T) {
	entries := []Weighted{
		{Vector: vec(0.0), Weight: 1},
		{Vector: vec(1.0), Weight: 3},
	}
	out := WeightedMean(entries)
	for i := range out {
		assert.InDelta(t, 0.75, out[i], 1e-12)
	}
}

func TestWindowUsesMostRecentEntries(t *testing.T) {
	history := []feature.Vector{vec(0.0), vec(0.0), vec(0.6), vec(0.8)}

	out := Window(history, 2)
	for i := range out {
		assert.InDelta(t, 0.7, out[i], 1e-12)
	}

	// Oversized window covers everything.
	out = Window(history, 100)
	for i := range out {
		assert.InDelta(t, 0.35, out[i], 1e-12)
	}
}

func TestWindowIdenticalHistoryReturnsThatVector(t *testing.T) {
	v := feature.Vector{0.9, 0.1, 0.8, 0.64, 0.92, 0.05, 0.02, 0.01, 0.1}
	history := []feature.Vector{v, v, v, v, v}

	out := Window(history, 10)
	for i := range out {
		assert.InDelta(t, v[i], out[i], 1e-12)
	}
}

func TestEmptyHistoryReturnsNeutralDefault(t *testing.T) {
	assert.Equal(t, feature.Neutral(), Window(nil, 10))
	assert.Equal(t, feature.Neutral(), WeightedMean(nil))
	assert.Equal(t, feature.Neutral(), Aggregate(nil, ModeAvalanche, 0))
}

func TestAggregateModes(t *testing.T) {
	entries := []Weighted{
		{Vector: vec(0.2), Weight: 1},
		{Vector: vec(0.8), Weight: 1},
	}

	avalanche := Aggregate(entries, ModeAvalanche, 0)
	for i := range avalanche {
		assert.InDelta(t, 0.5, avalanche[i], 1e-12)
	}

	window := Aggregate(entries, ModeWindow, 1)
	for i := range window {
		assert.InDelta(t, 0.8, window[i], 1e-12)
	}
}
