package vindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/bonfito/billie/pkg/feature"
)

// Flat is an exact nearest-neighbor index holding every vector in memory.
// Build normalizes nothing: the catalog collaborator guarantees entries and
// queries share one scaling contract, so raw Euclidean distance is
// meaningful as-is.
type Flat struct {
	entries []Entry
}

// NewFlat builds a flat index. Entries with non-finite vectors are rejected
// so a single bad row cannot poison every subsequent distance computation.
func NewFlat(entries []Entry) (*Flat, error) {
	for _, e := range entries {
		if err := e.Vector.Validate(); err != nil {
			return nil, fmt.Errorf("index entry %s: %w", e.ID, err)
		}
	}
	stored := make([]Entry, len(entries))
	copy(stored, entries)
	return &Flat{entries: stored}, nil
}

// Size returns the number of indexed entries.
func (f *Flat) Size() int {
	return len(f.entries)
}

// Search scans every entry and returns the k closest by Euclidean distance,
// scored as 1/(1+d). Ties break on id for a stable ordering.
func (f *Flat) Search(ctx context.Context, query feature.Vector, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	if len(f.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(f.entries) {
		k = len(f.entries)
	}

	results := make([]Result, len(f.entries))
	for i, e := range f.entries {
		results[i] = Result{
			ID:         e.ID,
			Similarity: feature.Similarity(feature.Distance(query, e.Vector)),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	return results[:k], nil
}
