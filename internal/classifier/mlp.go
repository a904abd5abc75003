package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Layer is one dense layer of an exported model: out = act(W·in + b).
type Layer struct {
	Weights    [][]float64 `json:"weights"` // [out][in]
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"` // relu, tanh, sigmoid, none
}

// MLP is a feed-forward network exported from the training pipeline as JSON.
type MLP struct {
	Layers []Layer `json:"layers"`
	// Optional per-feature standardisation applied before the first layer.
	Mean []float64 `json:"mean,omitempty"`
	Std  []float64 `json:"std,omitempty"`
}

// LoadMLP reads and validates a JSON model export.
func LoadMLP(path string) (*MLP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read model: %w", err)
	}
	var m MLP
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("classifier: parse model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("classifier: model %s: %w", path, err)
	}
	return &m, nil
}

func (m *MLP) validate() error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("no layers")
	}
	in := m.InputSize()
	for i, l := range m.Layers {
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Bias) {
			return fmt.Errorf("layer %d: %d weight rows, %d biases", i, len(l.Weights), len(l.Bias))
		}
		for j, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("layer %d row %d: %d inputs, want %d", i, j, len(row), in)
			}
		}
		if _, err := activation(l.Activation); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		in = len(l.Weights)
	}
	if m.Mean != nil && len(m.Mean) != m.InputSize() {
		return fmt.Errorf("mean has %d entries, want %d", len(m.Mean), m.InputSize())
	}
	if m.Std != nil && len(m.Std) != m.InputSize() {
		return fmt.Errorf("std has %d entries, want %d", len(m.Std), m.InputSize())
	}
	return nil
}

// InputSize is the expected feature vector length.
func (m *MLP) InputSize() int {
	if len(m.Layers) == 0 || len(m.Layers[0].Weights) == 0 {
		return 0
	}
	return len(m.Layers[0].Weights[0])
}

// Classes is the number of output scores.
func (m *MLP) Classes() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return len(m.Layers[len(m.Layers)-1].Bias)
}

// Forward runs the network and returns the raw output scores.
func (m *MLP) Forward(features []float64) ([]float64, error) {
	if len(features) != m.InputSize() {
		return nil, fmt.Errorf("classifier: got %d features, model expects %d", len(features), m.InputSize())
	}

	x := make([]float64, len(features))
	copy(x, features)
	for i := range x {
		if m.Mean != nil {
			x[i] -= m.Mean[i]
		}
		if m.Std != nil && m.Std[i] != 0 {
			x[i] /= m.Std[i]
		}
	}

	for _, l := range m.Layers {
		act, _ := activation(l.Activation)
		y := make([]float64, len(l.Weights))
		for o, row := range l.Weights {
			sum := l.Bias[o]
			for k, w := range row {
				sum += w * x[k]
			}
			y[o] = act(sum)
		}
		x = y
	}
	return x, nil
}

// Predict implements Predictor.
func (m *MLP) Predict(_ context.Context, features []float64) (Prediction, error) {
	scores, err := m.Forward(features)
	if err != nil {
		return Prediction{}, err
	}
	class := Argmax(scores)
	if class < 0 {
		return Prediction{}, fmt.Errorf("classifier: model produced no usable score: %v", scores)
	}
	return Prediction{Class: class, Scores: scores}, nil
}

// Close implements Predictor.
func (m *MLP) Close() error { return nil }

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "", "none", "linear":
		return func(v float64) float64 { return v }, nil
	case "relu":
		return func(v float64) float64 { return math.Max(0, v) }, nil
	case "tanh":
		return math.Tanh, nil
	case "sigmoid":
		return func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}
