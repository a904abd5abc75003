package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/relabs-tech/gesture_controller/internal/classifier"
	"github.com/relabs-tech/gesture_controller/internal/config"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakePublisher records publishes and lets tests deliver messages to
// subscribers.
type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	subs map[string]func([]byte)
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{subs: map[string]func([]byte){}}
}

func (f *fakePublisher) Publish(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, published{topic, retained, payload})
	f.mu.Unlock()
	return nil
}

func (f *fakePublisher) Subscribe(topic string, handle func([]byte)) error {
	f.mu.Lock()
	f.subs[topic] = handle
	f.mu.Unlock()
	return nil
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) deliver(t *testing.T, topic string, v any) {
	t.Helper()
	f.mu.Lock()
	h, ok := f.subs[topic]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no subscriber for %s", topic)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	h(payload)
}

func (f *fakePublisher) on(topic string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, m := range f.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// stubModel predicts a fixed class and remembers the feature count.
type stubModel struct {
	class    int
	mu       sync.Mutex
	lastSize int
	calls    int
	err      error
}

func (s *stubModel) Predict(_ context.Context, feats []float64) (classifier.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastSize = len(feats)
	if s.err != nil {
		return classifier.Prediction{}, s.err
	}
	return classifier.Prediction{Class: s.class, Scores: []float64{0.1, 0.9}}, nil
}

func (s *stubModel) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataRootDir = t.TempDir() + "/"
	cfg.FeaturePoints = 8
	return cfg
}

// gestureLines returns n button-held lines followed by the release line.
func gestureLines(n int) []string {
	lines := make([]string, 0, n+1)
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("1;%.2f;0.10;0.98;12.50;-3.00;0.75;22.10;-5.30;41.00", float64(i)/10))
	}
	return append(lines, "0;0.00;0.00;1.00;0.00;0.00;0.00;22.00;-5.00;41.00")
}

func joinLines(lines ...[]string) string {
	var b strings.Builder
	for _, ls := range lines {
		for _, l := range ls {
			b.WriteString(l)
			b.WriteString("\r\n")
		}
	}
	return b.String()
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
