// Package classifier runs an externally trained gesture model.
package classifier

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/gesture_controller/internal/config"
)

// Prediction is the outcome of one forward pass.
type Prediction struct {
	Class  int       `json:"class"`
	Scores []float64 `json:"scores,omitempty"`
}

// Predictor is anything that can classify a feature vector.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (Prediction, error)
	Close() error
}

// Argmax returns the index of the largest score, or -1 when there is no
// score that is a number.
func Argmax(scores []float64) int {
	best := -1
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}

// Open returns the predictor selected by cfg: an external classifier
// process when CLASSIFIER_CMD is set, otherwise the exported model at
// MODEL_PATH.
func Open(cfg *config.Config) (Predictor, error) {
	if cfg.ClassifierCmd != "" {
		timeout := time.Duration(cfg.ClassifierTimeoutMs) * time.Millisecond
		p, err := StartProcess(cfg.ClassifierCmd, timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("classifier: one of MODEL_PATH or CLASSIFIER_CMD is required")
	}
	m, err := LoadMLP(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	return m, nil
}
