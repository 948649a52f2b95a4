package oracle

import (
	"fmt"
	"math/rand"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
)

// stateVersion guards against loading blobs written by an incompatible
// release.
const stateVersion = 1

type layerState struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	W    []float64 `json:"w"`
	B    []float64 `json:"b"`
	MW   []float64 `json:"mw"`
	VW   []float64 `json:"vw"`
	MB   []float64 `json:"mb"`
	VB   []float64 `json:"vb"`
	ReLU bool      `json:"relu"`
}

type state struct {
	Version     int          `json:"version"`
	Config      Config       `json:"config"`
	Trained     bool         `json:"trained"`
	Step        int          `json:"step"`
	LossHistory []float64    `json:"loss_history"`
	Layers      []layerState `json:"layers"`
}

// EncodeState serializes the full learned state as an opaque blob. The
// persistence collaborator is responsible for writing it atomically.
func (o *Oracle) EncodeState() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := state{
		Version:     stateVersion,
		Config:      o.cfg,
		Trained:     o.trained,
		Step:        o.net.step_,
		LossHistory: o.lossHistory,
	}
	for _, l := range o.net.layers {
		rows, cols := l.w.Dims()
		s.Layers = append(s.Layers, layerState{
			Rows: rows,
			Cols: cols,
			W:    append([]float64(nil), l.w.RawMatrix().Data...),
			B:    append([]float64(nil), l.b...),
			MW:   append([]float64(nil), l.mW.RawMatrix().Data...),
			VW:   append([]float64(nil), l.vW.RawMatrix().Data...),
			MB:   append([]float64(nil), l.mB...),
			VB:   append([]float64(nil), l.vB...),
			ReLU: l.relu,
		})
	}
	return json.Marshal(s)
}

// DecodeState restores an Oracle from a blob produced by EncodeState.
// The blob must be complete: partial state is rejected rather than patched.
func DecodeState(blob []byte) (*Oracle, error) {
	var s state
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode oracle state: %w", err)
	}
	if s.Version != stateVersion {
		return nil, fmt.Errorf("unsupported oracle state version %d", s.Version)
	}
	if len(s.Layers) == 0 {
		return nil, fmt.Errorf("oracle state has no layers")
	}

	net := &network{step_: s.Step}
	for i, ls := range s.Layers {
		if ls.Rows <= 0 || ls.Cols <= 0 {
			return nil, fmt.Errorf("oracle state layer %d is malformed", i)
		}
		n := ls.Rows * ls.Cols
		if len(ls.W) != n || len(ls.MW) != n || len(ls.VW) != n {
			return nil, fmt.Errorf("oracle state layer %d is malformed", i)
		}
		if len(ls.B) != ls.Rows || len(ls.MB) != ls.Rows || len(ls.VB) != ls.Rows {
			return nil, fmt.Errorf("oracle state layer %d is malformed", i)
		}
		net.layers = append(net.layers, &denseLayer{
			w:    mat.NewDense(ls.Rows, ls.Cols, append([]float64(nil), ls.W...)),
			b:    append([]float64(nil), ls.B...),
			mW:   mat.NewDense(ls.Rows, ls.Cols, append([]float64(nil), ls.MW...)),
			vW:   mat.NewDense(ls.Rows, ls.Cols, append([]float64(nil), ls.VW...)),
			mB:   append([]float64(nil), ls.MB...),
			vB:   append([]float64(nil), ls.VB...),
			relu: ls.ReLU,
		})
	}

	return &Oracle{
		cfg:         s.Config,
		net:         net,
		rng:         rand.New(rand.NewSource(s.Config.Seed)),
		trained:     s.Trained,
		lossHistory: s.LossHistory,
	}, nil
}
