package vindex

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonfito/billie/pkg/feature"
)

func entry(id string, x float64) Entry {
	var v feature.Vector
	for i := range v {
		v[i] = x
	}
	return Entry{ID: id, Vector: v}
}

func TestFlatRoundTrip(t *testing.T) {
	idx, err := NewFlat([]Entry{entry("a", 0.1), entry("b", 0.5), entry("c", 0.9)})
	require.NoError(t, err)

	var query feature.Vector
	for i := range query {
		query[i] = 0.5
	}

	results, err := idx.Search(context.Background(), query, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// The exact vector comes back first with maximal similarity.
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, 1.0, results[0].Similarity)
	for _, r := range results[1:] {
		assert.Less(t, r.Similarity, results[0].Similarity)
	}
}

func TestFlatOrderedDescending(t *testing.T) {
	idx, err := NewFlat([]Entry{entry("a", 0.0), entry("b", 0.3), entry("c", 0.6), entry("d", 1.0)})
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), entry("", 0.1).Vector, 4)
	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestFlatDegenerateCases(t *testing.T) {
	empty, err := NewFlat(nil)
	require.NoError(t, err)

	results, err := empty.Search(context.Background(), feature.Neutral(), 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	small, err := NewFlat([]Entry{entry("a", 0.1), entry("b", 0.2)})
	require.NoError(t, err)

	// k beyond the catalog returns everything available.
	results, err = small.Search(context.Background(), feature.Neutral(), 100)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = small.Search(context.Background(), feature.Neutral(), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFlatSearchIsIdempotent(t *testing.T) {
	idx, err := NewFlat([]Entry{entry("a", 0.2), entry("b", 0.4), entry("c", 0.6), entry("d", 0.8)})
	require.NoError(t, err)

	query := feature.Vector{0.9, 0.1, 0.8, 0.64, 0.92, 0.05, 0.02, 0.01, 0.1}
	first, err := idx.Search(context.Background(), query, 4)
	require.NoError(t, err)
	second, err := idx.Search(context.Background(), query, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFlatRejectsBadVectors(t *testing.T) {
	bad := entry("x", 0)
	bad.Vector[3] = math.NaN()
	_, err := NewFlat([]Entry{bad})
	assert.Error(t, err)

	idx, err := NewFlat([]Entry{entry("a", 0.5)})
	require.NoError(t, err)

	query := feature.Neutral()
	query[0] = math.Inf(1)
	_, err = idx.Search(context.Background(), query, 1)
	assert.Error(t, err)
}

func TestFlatHonorsCancelledContext(t *testing.T) {
	idx, err := NewFlat([]Entry{entry("a", 0.5)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Search(ctx, feature.Neutral(), 1)
	assert.Error(t, err)
}

func TestPerturberNudgesWithinBounds(t *testing.T) {
	p := NewPerturber(UniformSigma(DefaultSigma), 7)

	query := feature.Neutral()
	perturbed := p.Apply(query)

	assert.NotEqual(t, query, perturbed)
	for i, x := range perturbed {
		assert.GreaterOrEqual(t, x, 0.0, feature.Names[i])
		assert.LessOrEqual(t, x, 1.0, feature.Names[i])
		assert.InDelta(t, query[i], x, 0.5)
	}
}

func TestPerturberZeroSigmaIsIdentity(t *testing.T) {
	p := NewPerturber(feature.Vector{}, 7)
	query := feature.Neutral()
	assert.Equal(t, query, p.Apply(query))
}
