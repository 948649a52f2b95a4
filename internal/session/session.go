// Package session holds the per-listener mutable state: the context vector,
// the oracle instance and the exclusion set, threaded explicitly through
// every core call.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bonfito/billie/internal/catalog"
	"github.com/bonfito/billie/internal/history"
	"github.com/bonfito/billie/internal/playlist"
	"github.com/bonfito/billie/internal/store"
	"github.com/bonfito/billie/pkg/feature"
	"github.com/bonfito/billie/pkg/oracle"
	"github.com/bonfito/billie/pkg/rerank"
	"github.com/bonfito/billie/pkg/taste"
	"github.com/bonfito/billie/pkg/vindex"
)

// ErrNoSuggestions signals that retrieval found nothing outside the
// exclusion set even after widening. Distinct from a failure: the caller
// shows an explicit "no suggestions" state instead of crashing.
var ErrNoSuggestions = errors.New("no suggestions available")

// Config tunes the per-session recommendation behavior.
type Config struct {
	ListSize            int     `mapstructure:"list_size"`
	CandidateMultiplier int     `mapstructure:"candidate_multiplier"`
	WidenFactor         int     `mapstructure:"widen_factor"`
	WindowSize          int     `mapstructure:"window_size"`
	AggregationMode     string  `mapstructure:"aggregation_mode"`
	NoiseSigma          float64 `mapstructure:"noise_sigma"`
	NoiseEnabled        bool    `mapstructure:"noise_enabled"`
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		ListSize:            10,
		CandidateMultiplier: 5,
		WidenFactor:         4,
		WindowSize:          10,
		AggregationMode:     string(taste.ModeAvalanche),
		NoiseSigma:          vindex.DefaultSigma,
		NoiseEnabled:        true,
	}
}

// Deps are the shared read-only collaborators plus the per-session owned
// pieces. Catalog and Index are shared across sessions; Oracle, Ranker and
// Perturber belong to this session alone.
type Deps struct {
	Catalog  *catalog.Catalog
	Index    vindex.Index
	Oracle   *oracle.Oracle
	Ranker   *rerank.Engine
	Store    *store.Store     // optional: nil disables persistence
	Playlist *playlist.Client // optional: nil disables playlist mutation
	Logger   *zap.Logger
}

// Session is one listener's interaction state.
type Session struct {
	ID uuid.UUID

	mu          sync.Mutex
	cfg         Config
	context     feature.Vector
	acceptCount int
	shown       map[string]bool
	blacklist   map[string]bool
	profile     rerank.Profile
	topGenre    string
	perturber   *vindex.Perturber

	deps Deps
}

// New creates a session, warm-starting the context from history when
// available and loading the durable blacklist.
func New(cfg Config, deps Deps, warmStart []history.Entry) (*Session, error) {
	if deps.Catalog == nil || deps.Index == nil || deps.Oracle == nil || deps.Ranker == nil {
		return nil, errors.New("session requires catalog, index, oracle and ranker")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.ListSize <= 0 {
		cfg.ListSize = 10
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = 5
	}
	if cfg.WidenFactor <= 1 {
		cfg.WidenFactor = 4
	}

	s := &Session{
		ID:        uuid.New(),
		cfg:       cfg,
		shown:     make(map[string]bool),
		blacklist: make(map[string]bool),
		profile:   history.Profile(warmStart),
		topGenre:  history.TopGenre(warmStart),
		deps:      deps,
	}

	if cfg.NoiseEnabled {
		seed := int64(s.ID.ID())
		s.perturber = vindex.NewPerturber(vindex.UniformSigma(cfg.NoiseSigma), seed)
	}

	if len(warmStart) == 0 {
		s.context = feature.Neutral()
	} else {
		s.context = taste.Aggregate(history.Weighted(warmStart), taste.Mode(cfg.AggregationMode), cfg.WindowSize)
		s.acceptCount = len(warmStart)
	}

	if deps.Store != nil {
		bl, err := deps.Store.Blacklist()
		if err != nil {
			return nil, fmt.Errorf("load blacklist: %w", err)
		}
		s.blacklist = bl
	}

	deps.Logger.Info("session started",
		zap.String("sessionId", s.ID.String()),
		zap.Int("warmStartEntries", len(warmStart)),
		zap.Int("blacklisted", len(s.blacklist)),
	)
	return s, nil
}

// Context returns the current context vector.
func (s *Session) Context() feature.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context
}

// TopGenre returns the dominant genre from the warm-start history.
func (s *Session) TopGenre() string {
	return s.topGenre
}

// SetMood force-overrides context dimensions by feature name, clamped to
// the normalized range. Unknown names are rejected.
func (s *Session) SetMood(overrides map[string]float64) error {
	idx := make(map[string]int, feature.Dim)
	for i, name := range feature.Names {
		idx[name] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, value := range overrides {
		i, ok := idx[name]
		if !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		s.context[i] = value
	}
	return nil
}

// Recommend produces the next recommendation list. The oracle predicts the
// target audio profile from the current context, the index retrieves
// candidates and the ranker applies the diversity policy. When every
// candidate falls to the exclusion filter the search widens once before
// giving up with ErrNoSuggestions.
func (s *Session) Recommend(ctx context.Context, k int) ([]rerank.Item, error) {
	if k <= 0 {
		k = s.cfg.ListSize
	}

	s.mu.Lock()
	current := s.context
	s.mu.Unlock()

	predicted, err := s.deps.Oracle.Predict(current)
	if err != nil {
		return nil, fmt.Errorf("predict next profile: %w", err)
	}

	query := predicted.Clamp()
	if s.perturber != nil {
		query = s.perturber.Apply(query)
	}

	items, err := s.retrieveAndRank(ctx, query, k, k*s.cfg.CandidateMultiplier)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		// Widen once: the mood basin may be fully excluded already.
		items, err = s.retrieveAndRank(ctx, query, k, k*s.cfg.CandidateMultiplier*s.cfg.WidenFactor)
		if err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, ErrNoSuggestions
	}

	s.mu.Lock()
	for _, it := range items {
		s.shown[it.ID] = true
	}
	s.mu.Unlock()

	s.deps.Logger.Debug("recommendation produced",
		zap.String("sessionId", s.ID.String()),
		zap.Int("items", len(items)),
	)
	return items, nil
}

func (s *Session) retrieveAndRank(ctx context.Context, query feature.Vector, k, searchK int) ([]rerank.Item, error) {
	hits, err := s.deps.Index.Search(ctx, query, searchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := make([]rerank.Candidate, 0, len(hits))
	for _, hit := range hits {
		if c, ok := s.deps.Catalog.Candidate(hit); ok {
			candidates = append(candidates, c)
		}
	}

	s.mu.Lock()
	excluded := make(map[string]bool, len(s.blacklist)+len(s.shown))
	for id := range s.blacklist {
		excluded[id] = true
	}
	for id := range s.shown {
		excluded[id] = true
	}
	profile := s.profile
	s.mu.Unlock()

	return s.deps.Ranker.Rank(candidates, profile, excluded, k), nil
}
