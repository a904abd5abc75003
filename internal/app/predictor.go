package app

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/classifier"
	"github.com/relabs-tech/gesture_controller/internal/config"
	"github.com/relabs-tech/gesture_controller/internal/features"
)

// LivePredictor classifies each finished gesture as it streams in.
type LivePredictor struct {
	*sampler
	model           classifier.Predictor
	points          int
	timeout         time.Duration
	topicPrediction string

	mu      sync.RWMutex
	current int
}

// NewLivePredictor wires model to the gesture stream.
func NewLivePredictor(cfg *config.Config, model classifier.Predictor, pub Publisher) *LivePredictor {
	return &LivePredictor{
		sampler:         newSampler(cfg.SampleSizeMin, pub, cfg.TopicIMU, cfg.PublishRaw),
		model:           model,
		points:          cfg.FeaturePoints,
		timeout:         time.Duration(cfg.ClassifierTimeoutMs) * time.Millisecond,
		topicPrediction: cfg.TopicPrediction,
		current:         -1,
	}
}

// Current is the most recent predicted class, or -1 before the first.
func (p *LivePredictor) Current() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// HandleLine processes one receiver line.
func (p *LivePredictor) HandleLine(ctx context.Context, line string) {
	sample, ok := p.feed(line)
	if !ok {
		return
	}

	feats, err := features.Interpolate(sample.Values, p.points)
	if err != nil {
		log.Errorf("features: %v", err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	pred, err := p.model.Predict(callCtx, feats)
	cancel()
	if err != nil {
		log.Errorf("prediction failed: %v", err)
		return
	}

	p.mu.Lock()
	p.current = pred.Class
	p.mu.Unlock()

	log.Infof("Gesture detected, predicted gesture = %d", pred.Class)

	msg := PredictionMessage{
		Class:       pred.Class,
		Scores:      pred.Scores,
		Count:       sample.Count,
		DurationSec: sample.Duration.Seconds(),
		Time:        sample.EndedAt.Format(time.RFC3339),
		Values:      sample.Values,
	}
	if err := p.pub.Publish(p.topicPrediction, true, msg); err != nil {
		log.Warnf("prediction publish: %v", err)
	}
}

// RunPredictor classifies live gestures from the receiver until ctx is done.
func RunPredictor(ctx context.Context, open Opener, opts StreamOptions) error {
	cfg := config.Get()

	model, err := classifier.Open(cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	pub, err := NewPublisher(cfg, cfg.MQTTClientIDPredictor)
	if err != nil {
		return err
	}
	defer pub.Close()

	lp := NewLivePredictor(cfg, model, pub)
	log.Infof("predicting gestures (%d feature points per channel)", cfg.FeaturePoints)

	err = Stream(ctx, open, opts, func(line string) { lp.HandleLine(ctx, line) })
	if err == context.Canceled {
		return nil
	}
	return err
}
