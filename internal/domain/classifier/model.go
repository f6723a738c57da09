// Package classifier implements a small feed-forward network that scores
// attrition probability from encoded feature vectors.
package classifier

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/attrition/internal/domain/encoding"
	"github.com/okian/attrition/internal/domain/model"
)

// Model is a trained network. It is not mutated after Train returns and is
// safe for concurrent prediction.
type Model struct {
	Layers    []Layer          `json:"layers"`
	Threshold float64          `json:"threshold"`
	Params    *encoding.Params `json:"params,omitempty"`
	Config    Config           `json:"config"`
	History   []Progress       `json:"history"`
	TrainedAt time.Time        `json:"trained_at"`
	Samples   int              `json:"samples"`
	// Version is assigned by the model registry.
	Version string `json:"version,omitempty"`
}

// Width is the input width the model accepts.
func (m *Model) Width() int {
	if m == nil || len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[0].In
}

// Predict returns a probability in [0,1] per vector.
func (m *Model) Predict(X []encoding.Vector) ([]float64, error) {
	if m == nil || len(m.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrPrediction)
	}
	width := m.Width()
	for i, x := range X {
		if len(x) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrShape, i, len(x), width)
		}
	}

	ws := newWorkspace(m.Layers)
	out := make([]float64, len(X))
	for i, x := range X {
		p := ws.predict(m.Layers, x)
		if math.IsNaN(p) {
			return nil, fmt.Errorf("%w: non-finite output at row %d", ErrPrediction, i)
		}
		out[i] = p
	}
	return out, nil
}

// PredictOne scores a single vector.
func (m *Model) PredictOne(x encoding.Vector) (float64, error) {
	out, err := m.Predict([]encoding.Vector{x})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// PredictRecord encodes rec with the model's parameters and scores it.
func (m *Model) PredictRecord(rec model.EmployeeRecord) (float64, error) {
	if m == nil || m.Params == nil {
		return 0, fmt.Errorf("%w: model has no encoding parameters", ErrPrediction)
	}
	x, err := m.Params.Transform(rec)
	if err != nil {
		return 0, err
	}
	return m.PredictOne(x)
}

// Flag reports whether p crosses the model's decision threshold.
func (m *Model) Flag(p float64) bool { return p >= m.Threshold }

// Final returns the metrics of the last epoch.
func (m *Model) Final() (Progress, bool) {
	if len(m.History) == 0 {
		return Progress{}, false
	}
	return m.History[len(m.History)-1], true
}

// Clone returns a deep copy of the network weights and history.
func (m *Model) Clone() *Model {
	c := *m
	c.Layers = cloneLayers(m.Layers)
	c.History = append([]Progress(nil), m.History...)
	c.Config.HiddenLayers = append([]int(nil), m.Config.HiddenLayers...)
	return &c
}

// Evaluation summarizes predictions against known labels.
type Evaluation struct {
	Samples        int     `json:"samples"`
	Loss           float64 `json:"loss"`
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalseNegatives int     `json:"false_negatives"`
}

// Evaluate scores X and compares the flagged outcome with y.
func (m *Model) Evaluate(X []encoding.Vector, y []float64) (Evaluation, error) {
	if len(X) != len(y) {
		return Evaluation{}, fmt.Errorf("%w: %d rows, %d labels", ErrInvalidInput, len(X), len(y))
	}
	probs, err := m.Predict(X)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{Samples: len(X)}
	if len(X) == 0 {
		return ev, nil
	}
	for i, p := range probs {
		ev.Loss += bce(p, y[i])
		switch flagged, positive := m.Flag(p), y[i] == 1; {
		case flagged && positive:
			ev.TruePositives++
		case flagged:
			ev.FalsePositives++
		case positive:
			ev.FalseNegatives++
		default:
			ev.TrueNegatives++
		}
	}
	n := float64(len(X))
	ev.Loss /= n
	ev.Accuracy = float64(ev.TruePositives+ev.TrueNegatives) / n
	if d := ev.TruePositives + ev.FalsePositives; d > 0 {
		ev.Precision = float64(ev.TruePositives) / float64(d)
	}
	if d := ev.TruePositives + ev.FalseNegatives; d > 0 {
		ev.Recall = float64(ev.TruePositives) / float64(d)
	}
	if s := ev.Precision + ev.Recall; s > 0 {
		ev.F1 = 2 * ev.Precision * ev.Recall / s
	}
	return ev, nil
}
