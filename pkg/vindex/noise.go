package vindex

import (
	"math/rand"
	"sync"

	"github.com/bonfito/billie/pkg/feature"
)

// Perturber adds small Gaussian noise to a query before search so that an
// unchanged context does not return an identical top list on every call.
// This is a deliberate anti-stagnation device, applied after normalization
// so sigma is a fraction of each dimension's working range.
type Perturber struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sigma feature.Vector
}

// DefaultSigma is the default per-dimension noise magnitude: roughly 2% of
// the normalized range.
const DefaultSigma = 0.02

// NewPerturber creates a perturber with one sigma per dimension. A zero
// sigma disables noise for that dimension.
func NewPerturber(sigma feature.Vector, seed int64) *Perturber {
	return &Perturber{
		rng:   rand.New(rand.NewSource(seed)),
		sigma: sigma,
	}
}

// UniformSigma builds a sigma vector with the same magnitude everywhere.
func UniformSigma(s float64) feature.Vector {
	var v feature.Vector
	for i := range v {
		v[i] = s
	}
	return v
}

// Apply returns a perturbed copy of the query, clamped back into [0, 1].
func (p *Perturber) Apply(query feature.Vector) feature.Vector {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range query {
		if p.sigma[i] > 0 {
			query[i] += p.rng.NormFloat64() * p.sigma[i]
		}
	}
	return query.Clamp()
}
