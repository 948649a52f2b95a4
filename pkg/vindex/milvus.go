package vindex

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/bonfito/billie/pkg/feature"
)

// Collection layout on the Milvus server.
const (
	milvusCollection = "tracks"
	milvusIDField    = "track_id"
	milvusVecField   = "vector"
	maxIDLength      = 64
)

// MilvusConfig holds connection settings for the remote index backend.
type MilvusConfig struct {
	URI     string        `mapstructure:"uri"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultMilvusConfig returns sensible defaults for a local server.
func DefaultMilvusConfig() MilvusConfig {
	return MilvusConfig{
		URI:     "http://localhost:19530",
		Timeout: 30 * time.Second,
	}
}

// Milvus is an Index backed by a Milvus collection. Vectors are stored as
// float32 with L2 metric; distances are converted to the same bounded
// similarity score the flat backend produces.
type Milvus struct {
	cfg    MilvusConfig
	client client.Client
	size   int
}

// NewMilvus connects to the server and ensures the track collection exists.
func NewMilvus(ctx context.Context, cfg MilvusConfig) (*Milvus, error) {
	if cfg.URI == "" {
		cfg = DefaultMilvusConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c, err := client.NewClient(ctx, client.Config{Address: cfg.URI})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", cfg.URI, err)
	}

	m := &Milvus{cfg: cfg, client: c}
	if err := m.ensureCollection(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return m, nil
}

// Close releases the server connection.
func (m *Milvus) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

func (m *Milvus) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, milvusCollection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if has {
		return m.loadCollection(ctx)
	}

	schema := entity.NewSchema().
		WithName(milvusCollection).
		WithField(entity.NewField().
			WithName(milvusIDField).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxIDLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(milvusVecField).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(feature.Dim))

	if err := m.client.CreateCollection(ctx, schema, 1); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.L2, 16, 200)
	if err != nil {
		return fmt.Errorf("build index params: %w", err)
	}
	if err := m.client.CreateIndex(ctx, milvusCollection, milvusVecField, idx, false); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return m.loadCollection(ctx)
}

func (m *Milvus) loadCollection(ctx context.Context) error {
	if err := m.client.LoadCollection(ctx, milvusCollection, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

// Insert upserts catalog entries into the collection.
func (m *Milvus) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		if err := e.Vector.Validate(); err != nil {
			return fmt.Errorf("index entry %s: %w", e.ID, err)
		}
		ids[i] = e.ID
		vectors[i] = e.Vector.Float32s()
	}

	_, err := m.client.Upsert(ctx, milvusCollection, "",
		entity.NewColumnVarChar(milvusIDField, ids),
		entity.NewColumnFloatVector(milvusVecField, feature.Dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("upsert %d entries: %w", len(entries), err)
	}
	m.size += len(entries)

	if err := m.client.Flush(ctx, milvusCollection, false); err != nil {
		return fmt.Errorf("flush collection: %w", err)
	}
	return nil
}

// Size reports the number of entries inserted through this client.
func (m *Milvus) Size() int {
	return m.size
}

// Search performs ANN search and converts L2 distances into 1/(1+d) scores.
func (m *Milvus) Search(ctx context.Context, query feature.Vector, k int) ([]Result, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	if k <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	// ef must stay comfortably above k for recall
	sp, err := entity.NewIndexHNSWSearchParam(max(64, k*2))
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}

	vectors := []entity.Vector{entity.FloatVector(query.Float32s())}
	results, err := m.client.Search(ctx, milvusCollection, nil, "",
		[]string{milvusIDField}, vectors, milvusVecField, entity.L2, k, sp)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", milvusCollection, err)
	}

	var hits []Result
	for _, res := range results {
		idCol, ok := res.IDs.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		for i := 0; i < res.ResultCount; i++ {
			id, err := idCol.ValueByIdx(i)
			if err != nil {
				continue
			}
			// Milvus reports squared L2 distance
			dist := math.Sqrt(math.Max(0, float64(res.Scores[i])))
			hits = append(hits, Result{ID: id, Similarity: feature.Similarity(dist)})
		}
	}
	return hits, nil
}
