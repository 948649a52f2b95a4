// Package vindex provides nearest-neighbor retrieval over catalog feature
// vectors. The flat in-memory backend is exact and serves catalogs up to a
// few million tracks; the Milvus backend offloads larger catalogs to a
// remote ANN server behind the same interface.
package vindex

import (
	"context"

	"github.com/bonfito/billie/pkg/feature"
)

// Entry is a catalog vector keyed by track id.
type Entry struct {
	ID     string
	Vector feature.Vector
}

// Result is a single search hit. Similarity is bounded to (0, 1] with
// higher meaning closer, regardless of the backend's distance metric.
type Result struct {
	ID         string
	Similarity float64
}

// Index is a read-only similarity search structure. Implementations must be
// safe for unsynchronized concurrent reads once built.
type Index interface {
	// Search returns up to k entries ordered by descending similarity.
	// An empty index yields an empty result, not an error; k larger than
	// the index returns everything.
	Search(ctx context.Context, query feature.Vector, k int) ([]Result, error)

	// Size reports the number of indexed entries.
	Size() int
}
