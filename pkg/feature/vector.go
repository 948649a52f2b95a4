// Package feature defines the fixed 9-dimensional audio descriptor shared by
// the catalog, the context aggregator, the oracle and the vector index.
package feature

import (
	"fmt"
	"math"
)

// Dim is the number of audio feature dimensions.
const Dim = 9

// Fixed dimension ordering. Catalog columns, context vectors and index
// entries all use this order; misaligned vectors are a contract violation.
const (
	Energy = iota
	Valence
	Danceability
	Tempo
	Loudness
	Speechiness
	Acousticness
	Instrumentalness
	Liveness
)

// Names lists the dimension names in storage order.
var Names = [Dim]string{
	"energy",
	"valence",
	"danceability",
	"tempo",
	"loudness",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
}

// Vector is a normalized audio descriptor. All dimensions are expected to be
// scaled to [0, 1] by the catalog builder before they reach this package.
type Vector [Dim]float64

// Neutral default context for cold start. Tempo and loudness sit above the
// midpoint because their physical distributions are skewed: a literal 0.5
// tempo maps to an unusually slow song after min/max scaling.
var neutralDefault = Vector{
	Energy:           0.5,
	Valence:          0.5,
	Danceability:     0.5,
	Tempo:            0.55,
	Loudness:         0.7,
	Speechiness:      0.5,
	Acousticness:     0.5,
	Instrumentalness: 0.5,
	Liveness:         0.5,
}

// Neutral returns the default vector used when no history exists.
func Neutral() Vector {
	return neutralDefault
}

// FromSlice converts a raw float slice into a Vector, enforcing the width
// and finiteness contract.
func FromSlice(values []float64) (Vector, error) {
	var v Vector
	if len(values) != Dim {
		return v, fmt.Errorf("feature vector has %d dimensions, expected %d", len(values), Dim)
	}
	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return v, fmt.Errorf("feature %q is not finite", Names[i])
		}
		v[i] = x
	}
	return v, nil
}

// Validate checks that every dimension is finite. Range is not enforced
// here: the scaler contract belongs to the catalog collaborator, and slight
// overshoot from model predictions is legal query input.
func (v Vector) Validate() error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("feature %q is not finite", Names[i])
		}
	}
	return nil
}

// Slice returns a fresh float64 slice copy in storage order.
func (v Vector) Slice() []float64 {
	out := make([]float64, Dim)
	copy(out, v[:])
	return out
}

// Float32s returns the vector as float32s for index backends that store
// single precision.
func (v Vector) Float32s() []float32 {
	out := make([]float32, Dim)
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Clamp bounds every dimension to [0, 1].
func (v Vector) Clamp() Vector {
	for i, x := range v {
		v[i] = math.Max(0, math.Min(1, x))
	}
	return v
}

// Distance returns the Euclidean distance between two vectors.
func Distance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Similarity converts a Euclidean distance into a bounded score where
// higher means closer: 1/(1+d).
func Similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}
