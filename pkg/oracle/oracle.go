// Package oracle implements the online preference predictor: a small
// feed-forward regressor that maps the current context vector to the
// expected audio profile of the next accepted song, trained one feedback
// event at a time.
package oracle

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/bonfito/billie/pkg/feature"
)

// Config holds the network and optimizer hyperparameters.
type Config struct {
	HiddenSizes []int   `mapstructure:"hidden_sizes"`
	LearnRate   float64 `mapstructure:"learn_rate"`
	Beta1       float64 `mapstructure:"beta1"`
	Beta2       float64 `mapstructure:"beta2"`
	Epsilon     float64 `mapstructure:"epsilon"`
	Seed        int64   `mapstructure:"seed"`
}

// DefaultConfig returns the hyperparameters used in production: two hidden
// ReLU layers with Adam, sized for single-sample updates at user-feedback
// cadence.
func DefaultConfig() Config {
	return Config{
		HiddenSizes: []int{64, 32},
		LearnRate:   1e-3,
		Beta1:       0.9,
		Beta2:       0.999,
		Epsilon:     1e-8,
		Seed:        1,
	}
}

// Oracle is an online regressor over feature vectors. An Oracle is owned by
// a single session; the mutex only guards concurrent HTTP handlers hitting
// the same session.
type Oracle struct {
	mu          sync.Mutex
	cfg         Config
	net         *network
	rng         *rand.Rand
	trained     bool
	lossHistory []float64
}

// New creates an untrained Oracle. Until the first training step Predict
// returns a bounded random vector: documented cold-start policy, not an
// error state.
func New(cfg Config) *Oracle {
	if len(cfg.HiddenSizes) == 0 {
		cfg = DefaultConfig()
	}
	if cfg.LearnRate <= 0 {
		cfg.LearnRate = 1e-3
	}
	if cfg.Beta1 <= 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 <= 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 1e-8
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Oracle{
		cfg: cfg,
		net: newNetwork(feature.Dim, cfg.HiddenSizes, feature.Dim, rng),
		rng: rng,
	}
}

// Trained reports whether at least one training step has occurred.
func (o *Oracle) Trained() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.trained
}

// LossHistory returns a copy of the per-step training losses, oldest first.
func (o *Oracle) LossHistory() []float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]float64, len(o.lossHistory))
	copy(out, o.lossHistory)
	return out
}

// Predict returns the expected next feature vector for the given context.
// Before any training it draws each dimension uniformly from [0, 1).
func (o *Oracle) Predict(context feature.Vector) (feature.Vector, error) {
	if err := context.Validate(); err != nil {
		return feature.Vector{}, fmt.Errorf("predict context: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.trained {
		var v feature.Vector
		for i := range v {
			v[i] = o.rng.Float64()
		}
		return v, nil
	}

	out := o.net.forward(context.Slice())
	var v feature.Vector
	copy(v[:], out)
	return v, nil
}

// TrainIncremental performs exactly one gradient step on the transition
// (context -> accepted) and appends the resulting loss to the history.
// Non-finite inputs are rejected before touching the parameters: a single
// poisoned update cannot be undone in an online model.
func (o *Oracle) TrainIncremental(context, accepted feature.Vector) error {
	if err := context.Validate(); err != nil {
		return fmt.Errorf("train context: %w", err)
	}
	if err := accepted.Validate(); err != nil {
		return fmt.Errorf("train target: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	loss := o.net.step(context.Slice(), accepted.Slice(), o.cfg)
	o.lossHistory = append(o.lossHistory, loss)
	o.trained = true
	return nil
}
