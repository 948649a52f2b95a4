package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bonfito/billie/internal/catalog"
	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/rerank"
)

func TestClosestAndFarthestPickByDistance(t *testing.T) {
	level := func(base float64) feature.Vector {
		var v feature.Vector
		for i := range v {
			v[i] = base
		}
		return v
	}
	cat := catalog.New([]catalog.Track{
		{ID: "near", Name: "near", Artist: "a", Features: level(0.5)},
		{ID: "mid", Name: "mid", Artist: "b", Features: level(0.7)},
		{ID: "far", Name: "far", Artist: "c", Features: level(0.9)},
	})
	items := []rerank.Item{
		{Candidate: rerank.Candidate{ID: "mid"}},
		{Candidate: rerank.Candidate{ID: "far"}},
		{Candidate: rerank.Candidate{ID: "near"}},
	}

	best, worst := closestAndFarthest(cat, items, level(0.5))
	assert.Equal(t, "near", items[best].ID)
	assert.Equal(t, "far", items[worst].ID)

	// A hit missing from the catalog is skipped, not ranked.
	items = append(items, rerank.Item{Candidate: rerank.Candidate{ID: "ghost"}})
	best, worst = closestAndFarthest(cat, items, level(0.88))
	assert.Equal(t, "far", items[best].ID)
	assert.Equal(t, "near", items[worst].ID)
}
