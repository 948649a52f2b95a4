// Package taste reduces a listening history into a single context vector
// representing the listener's current mood.
package taste

import (
	"gonum.org/v1/gonum/stat"

	"github.com/bonfito/billie/pkg/feature"
)

// Mode selects the aggregation rule. Callers pick one explicitly; the modes
// are never mixed implicitly.
type Mode string

const (
	// ModeAvalanche is the recency-decay running mean.
	ModeAvalanche Mode = "avalanche"
	// ModeWeighted is the confidence-weighted mean over tagged sources.
	ModeWeighted Mode = "weighted"
	// ModeWindow is the plain mean over the N most recent entries.
	ModeWindow Mode = "window"
)

// Weighted pairs a vector with a source confidence weight.
type Weighted struct {
	Vector feature.Vector
	Weight float64
}

// Avalanche computes the running-mean context update
//
//	C_k = ((n-1)*C_{k-1} + v) / n
//
// where n is the count of accepted items so far. With n <= 1 the new vector
// replaces the context outright. As n grows each new song nudges the context
// less, so a single like late in a session cannot cause a discontinuity.
func Avalanche(prev, v feature.Vector, n int) feature.Vector {
	if n <= 1 {
		return v
	}
	var out feature.Vector
	fn := float64(n)
	for i := range out {
		out[i] = (prev[i]*(fn-1) + v[i]) / fn
	}
	return out
}

// WeightedMean computes sum(v_i*w_i)/sum(w_i). Negative weights are treated
// as zero. If the weights are absent or sum to zero it falls back to the
// arithmetic mean instead of failing.
func WeightedMean(entries []Weighted) feature.Vector {
	if len(entries) == 0 {
		return feature.Neutral()
	}

	var totalWeight float64
	for _, e := range entries {
		if e.Weight > 0 {
			totalWeight += e.Weight
		}
	}

	var out feature.Vector
	if totalWeight == 0 {
		for _, e := range entries {
			for i := range out {
				out[i] += e.Vector[i]
			}
		}
		n := float64(len(entries))
		for i := range out {
			out[i] /= n
		}
		return out
	}

	for _, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		for i := range out {
			out[i] += e.Vector[i] * e.Weight
		}
	}
	for i := range out {
		out[i] /= totalWeight
	}
	return out
}

// Window computes the mean of the n most recent vectors. Entries are ordered
// oldest to newest. A window larger than the history uses everything; an
// empty history yields the neutral default.
func Window(history []feature.Vector, n int) feature.Vector {
	if len(history) == 0 {
		return feature.Neutral()
	}
	if n <= 0 || n > len(history) {
		n = len(history)
	}
	recent := history[len(history)-n:]

	var out feature.Vector
	col := make([]float64, len(recent))
	for i := 0; i < feature.Dim; i++ {
		for j, v := range recent {
			col[j] = v[i]
		}
		out[i] = stat.Mean(col, nil)
	}
	return out
}

// Aggregate dispatches on mode. Weighted entries may carry zero weights;
// unknown modes fall back to the session window over everything.
func Aggregate(entries []Weighted, mode Mode, window int) feature.Vector {
	switch mode {
	case ModeWeighted:
		return WeightedMean(entries)
	case ModeAvalanche:
		// Replaying a history through the avalanche rule is equivalent to
		// folding each entry in with its running count.
		if len(entries) == 0 {
			return feature.Neutral()
		}
		ctx := entries[0].Vector
		for i := 1; i < len(entries); i++ {
			ctx = Avalanche(ctx, entries[i].Vector, i+1)
		}
		return ctx
	default:
		vectors := make([]feature.Vector, len(entries))
		for i, e := range entries {
			vectors[i] = e.Vector
		}
		return Window(vectors, window)
	}
}
