package app

import (
	"context"
	"encoding/json"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/config"
	"github.com/relabs-tech/gesture_controller/internal/dataset"
)

// Recorder turns button-held gestures into labelled training samples.
type Recorder struct {
	*sampler
	store       *dataset.Store
	topicSample string
	label       atomic.Int64
	recorded    atomic.Uint64
}

// NewRecorder builds a Recorder writing into store and announcing samples
// on pub.
func NewRecorder(cfg *config.Config, store *dataset.Store, pub Publisher) *Recorder {
	r := &Recorder{
		sampler:     newSampler(cfg.SampleSizeMin, pub, cfg.TopicIMU, cfg.PublishRaw),
		store:       store,
		topicSample: cfg.TopicSample,
	}
	r.label.Store(int64(cfg.GestureLabel))
	return r
}

// SetLabel changes the label applied to subsequent samples.
func (r *Recorder) SetLabel(label int) {
	if old := r.label.Swap(int64(label)); old != int64(label) {
		log.Infof("gesture label changed %d -> %d", old, label)
	}
}

// Label is the label currently applied.
func (r *Recorder) Label() int { return int(r.label.Load()) }

// Recorded is the number of samples saved so far.
func (r *Recorder) Recorded() uint64 { return r.recorded.Load() }

// HandleLine processes one receiver line.
func (r *Recorder) HandleLine(line string) {
	sample, ok := r.feed(line)
	if !ok {
		return
	}

	label := r.Label()
	path, err := r.store.Record(sample, label)
	if err != nil {
		log.Errorf("saving sample: %v", err)
		return
	}
	r.recorded.Add(1)
	log.Infof("%.3f second sample recorded and saved as %s (label %d, %d readings)",
		sample.Duration.Seconds(), path, label, sample.Count)

	if err := r.pub.Publish(r.topicSample, false, newSampleMessage(sample, path, label)); err != nil {
		log.Warnf("sample publish: %v", err)
	}
}

// handleLabel applies a LabelMessage received on TOPIC_LABEL.
func (r *Recorder) handleLabel(payload []byte) {
	var msg LabelMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warnf("label unmarshal error: %v", err)
		return
	}
	if msg.Label < 0 {
		log.Warnf("ignoring negative label %d", msg.Label)
		return
	}
	r.SetLabel(msg.Label)
}

// RunRecorder records labelled gestures from the receiver until ctx is done.
func RunRecorder(ctx context.Context, open Opener, opts StreamOptions) error {
	cfg := config.Get()

	pub, err := NewPublisher(cfg, cfg.MQTTClientIDRecorder)
	if err != nil {
		return err
	}
	defer pub.Close()

	store := dataset.NewStore(cfg.DataRootDir, cfg.DataDirName, cfg.IndexFile)
	rec := NewRecorder(cfg, store, pub)

	if err := pub.Subscribe(cfg.TopicLabel, rec.handleLabel); err != nil {
		return err
	}

	log.Infof("recording gestures with label %d into %s (index %s)",
		rec.Label(), store.DataPath(), store.IndexPath())

	err = Stream(ctx, open, opts, rec.HandleLine)
	log.Infof("recorder stopped: %d samples recorded", rec.Recorded())
	if err == context.Canceled {
		return nil
	}
	return err
}
