package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/relabs-tech/gesture_controller/internal/features"
)

func TestLivePredictorClassifiesGesture(t *testing.T) {
	cfg := testConfig(t)
	pub := newFakePublisher()
	model := &stubModel{class: 4}
	lp := NewLivePredictor(cfg, model, pub)

	if lp.Current() != -1 {
		t.Fatalf("Current = %d before any gesture", lp.Current())
	}
	for _, l := range gestureLines(15) {
		lp.HandleLine(context.Background(), l)
	}

	if model.calls != 1 {
		t.Fatalf("model called %d times", model.calls)
	}
	if model.lastSize != features.Len(cfg.FeaturePoints) {
		t.Errorf("feature vector len = %d, want %d", model.lastSize, features.Len(cfg.FeaturePoints))
	}
	if lp.Current() != 4 {
		t.Errorf("Current = %d, want 4", lp.Current())
	}

	msgs := pub.on(cfg.TopicPrediction)
	if len(msgs) != 1 || !msgs[0].retained {
		t.Fatalf("prediction messages = %+v", msgs)
	}
	var m PredictionMessage
	if err := json.Unmarshal(msgs[0].payload, &m); err != nil {
		t.Fatal(err)
	}
	if m.Class != 4 || m.Count != 15 || len(m.Values[3]) != 15 {
		t.Errorf("prediction = %+v", m)
	}
}

func TestLivePredictorIgnoresShortGestureAndErrors(t *testing.T) {
	cfg := testConfig(t)
	pub := newFakePublisher()
	model := &stubModel{err: errors.New("boom")}
	lp := NewLivePredictor(cfg, model, pub)

	for _, l := range gestureLines(2) {
		lp.HandleLine(context.Background(), l)
	}
	if model.calls != 0 {
		t.Errorf("short gesture classified")
	}

	for _, l := range gestureLines(10) {
		lp.HandleLine(context.Background(), l)
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1", model.calls)
	}
	if lp.Current() != -1 {
		t.Errorf("failed prediction changed Current to %d", lp.Current())
	}
	if len(pub.on(cfg.TopicPrediction)) != 0 {
		t.Error("failed prediction published")
	}
}
