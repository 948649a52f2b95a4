package oracle

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// network is a small dense ReLU regressor operating on single samples.
// Weights live in gonum matrices (rows = outputs, cols = inputs); the Adam
// moment estimates are kept alongside each layer.
type network struct {
	layers []*denseLayer
	step_  int // Adam timestep, shared by all layers
}

type denseLayer struct {
	w  *mat.Dense
	b  []float64
	mW *mat.Dense
	vW *mat.Dense
	mB []float64
	vB []float64

	// forward cache for the last sample
	input      []float64
	preAct     []float64
	activation []float64
	relu       bool
}

func newNetwork(inputDim int, hidden []int, outputDim int, rng *rand.Rand) *network {
	sizes := append([]int{inputDim}, hidden...)
	sizes = append(sizes, outputDim)

	net := &network{}
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		l := &denseLayer{
			w:    mat.NewDense(out, in, nil),
			b:    make([]float64, out),
			mW:   mat.NewDense(out, in, nil),
			vW:   mat.NewDense(out, in, nil),
			mB:   make([]float64, out),
			vB:   make([]float64, out),
			relu: i < len(sizes)-2, // linear output layer
		}
		// Glorot uniform initialization
		limit := math.Sqrt(6.0 / float64(in+out))
		for r := 0; r < out; r++ {
			for c := 0; c < in; c++ {
				l.w.Set(r, c, (rng.Float64()*2-1)*limit)
			}
		}
		net.layers = append(net.layers, l)
	}
	return net
}

// forward runs inference without caching gradients.
func (n *network) forward(x []float64) []float64 {
	for _, l := range n.layers {
		x = l.forward(x, false)
	}
	return x
}

func (l *denseLayer) forward(x []float64, cache bool) []float64 {
	rows, cols := l.w.Dims()
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		sum := l.b[r]
		for c := 0; c < cols; c++ {
			sum += l.w.At(r, c) * x[c]
		}
		out[r] = sum
	}

	var activated []float64
	if l.relu {
		activated = make([]float64, rows)
		for i, v := range out {
			if v > 0 {
				activated[i] = v
			}
		}
	} else {
		activated = out
	}

	if cache {
		l.input = append(l.input[:0], x...)
		l.preAct = out
		l.activation = activated
	}
	return activated
}

// step runs one forward/backward pass with an Adam update and returns the
// half mean squared error of the prediction before the update.
func (n *network) step(x, target []float64, cfg Config) float64 {
	out := x
	for _, l := range n.layers {
		out = l.forward(out, true)
	}

	// Loss and output gradient: L = mean((y-t)^2) / 2, dL/dy = (y-t)/dim
	dim := float64(len(out))
	var loss float64
	grad := make([]float64, len(out))
	for i := range out {
		d := out[i] - target[i]
		loss += d * d
		grad[i] = d / dim
	}
	loss /= 2 * dim

	n.step_++
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad = n.layers[i].backward(grad, cfg, n.step_)
	}
	return loss
}

// backward consumes the gradient w.r.t. this layer's output, applies the
// Adam update and returns the gradient w.r.t. its input.
func (l *denseLayer) backward(gradOut []float64, cfg Config, t int) []float64 {
	rows, cols := l.w.Dims()

	if l.relu {
		for i := range gradOut {
			if l.preAct[i] <= 0 {
				gradOut[i] = 0
			}
		}
	}

	gradIn := make([]float64, cols)
	for c := 0; c < cols; c++ {
		var sum float64
		for r := 0; r < rows; r++ {
			sum += l.w.At(r, c) * gradOut[r]
		}
		gradIn[c] = sum
	}

	// Bias-corrected Adam moments
	correct1 := 1 - math.Pow(cfg.Beta1, float64(t))
	correct2 := 1 - math.Pow(cfg.Beta2, float64(t))

	for r := 0; r < rows; r++ {
		g := gradOut[r]
		for c := 0; c < cols; c++ {
			gw := g * l.input[c]
			m := cfg.Beta1*l.mW.At(r, c) + (1-cfg.Beta1)*gw
			v := cfg.Beta2*l.vW.At(r, c) + (1-cfg.Beta2)*gw*gw
			l.mW.Set(r, c, m)
			l.vW.Set(r, c, v)
			l.w.Set(r, c, l.w.At(r, c)-cfg.LearnRate*(m/correct1)/(math.Sqrt(v/correct2)+cfg.Epsilon))
		}

		m := cfg.Beta1*l.mB[r] + (1-cfg.Beta1)*g
		v := cfg.Beta2*l.vB[r] + (1-cfg.Beta2)*g*g
		l.mB[r] = m
		l.vB[r] = v
		l.b[r] -= cfg.LearnRate * (m / correct1) / (math.Sqrt(v/correct2) + cfg.Epsilon)
	}

	return gradIn
}
