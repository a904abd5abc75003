package controller

import (
	"errors"
	"io"
	"testing"

	"github.com/relabs-tech/gesture_controller/internal/gesture"
	"github.com/relabs-tech/gesture_controller/internal/imu"
)

func TestMockSourceProducesGestures(t *testing.T) {
	src := NewMockSource(MockOptions{IdleLines: 3, GestureLines: 10, Gestures: 2, Seed: 1})
	acc := gesture.NewAccumulator(0)

	var samples []*gesture.Sample
	diagnostics := 0
	for {
		line, err := src.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		r, err := imu.ParseLine(line)
		if errors.Is(err, imu.ErrFieldCount) {
			diagnostics++
			continue
		}
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		if s, ok := acc.Feed(r); ok {
			samples = append(samples, s)
		}
	}

	if diagnostics == 0 {
		t.Error("expected receiver diagnostic lines")
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	for _, s := range samples {
		if s.Count != 10 {
			t.Errorf("sample has %d readings, want 10", s.Count)
		}
	}
}

func TestMockSourceClose(t *testing.T) {
	src := NewMockSource(MockOptions{IdleLines: 1, GestureLines: 1, Seed: 1})
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := src.ReadLine(); err == nil {
		t.Error("expected error after Close")
	}
}
