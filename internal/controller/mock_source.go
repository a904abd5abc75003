// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package controller

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/gesture_controller/internal/serialport"
)

// MockOptions shapes the synthetic stream.
type MockOptions struct {
	Interval     time.Duration // delay between lines; 0 emits as fast as read
	IdleLines    int           // button-released lines between gestures
	GestureLines int           // button-held lines per gesture
	Gestures     int           // number of gestures before io.EOF; 0 is endless
	Seed         int64
}

// DefaultMockOptions roughly matches the receiver: a line every 3 ms and
// gestures of about half a second.
func DefaultMockOptions() MockOptions {
	return MockOptions{
		Interval:     3 * time.Millisecond,
		IdleLines:    150,
		GestureLines: 160,
		Seed:         time.Now().UnixNano(),
	}
}

type mockSource struct {
	opts MockOptions
	rng  *rand.Rand

	mu      sync.Mutex
	pos     int // line within the current idle+gesture cycle
	gesture int // gestures completed
	shape   int // motion pattern of the current gesture
	closed  bool
	queue   []string
}

// NewMockSource creates a line source that imitates the controller
// receiver: idle lines with the button released, bursts of button-held
// motion, and the receiver's own diagnostic chatter.
func NewMockSource(opts MockOptions) serialport.LineSource {
	if opts.GestureLines <= 0 {
		opts.GestureLines = 1
	}
	return &mockSource{
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		queue: []string{"***Peripheral device discovered***", "Connected to peripheral device"},
	}
}

func (m *mockSource) ReadLine() (string, error) {
	if m.opts.Interval > 0 {
		time.Sleep(m.opts.Interval)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", io.ErrClosedPipe
	}
	if len(m.queue) > 0 {
		line := m.queue[0]
		m.queue = m.queue[1:]
		return line, nil
	}
	if m.opts.Gestures > 0 && m.gesture >= m.opts.Gestures {
		return "", io.EOF
	}

	cycle := m.opts.IdleLines + m.opts.GestureLines
	var line string
	if m.pos < m.opts.IdleLines {
		line = m.idleLine()
	} else {
		if m.pos == m.opts.IdleLines {
			m.shape = m.rng.Intn(3)
		}
		phase := float64(m.pos-m.opts.IdleLines) / float64(m.opts.GestureLines)
		line = m.gestureLine(phase)
	}

	m.pos++
	if m.pos == cycle {
		m.pos = 0
		m.gesture++
		// the release edge closes the gesture even with IdleLines == 0
		m.queue = append(m.queue, m.idleLine())
	}
	return line, nil
}

func (m *mockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSource) noise(scale float64) float64 {
	return (m.rng.Float64() - 0.5) * scale
}

// idleLine is a controller resting flat: gravity on z, no rotation.
func (m *mockSource) idleLine() string {
	return format(false, [9]float64{
		m.noise(0.02), m.noise(0.02), 1 + m.noise(0.02),
		m.noise(0.5), m.noise(0.5), m.noise(0.5),
		22 + m.noise(0.3), -5 + m.noise(0.3), 41 + m.noise(0.3),
	})
}

// gestureLine traces one of three motions: a swipe along x, a circle in
// the x/y plane, or a twist about z.
func (m *mockSource) gestureLine(phase float64) string {
	s := math.Sin(2 * math.Pi * phase)
	c := math.Cos(2 * math.Pi * phase)

	var v [9]float64
	switch m.shape {
	case 0:
		v = [9]float64{1.5 * s, 0, 1, 0, 0, 20 * c, 22, -5, 41}
	case 1:
		v = [9]float64{s, c, 1, 90 * c, 90 * s, 0, 22 + 3*s, -5 + 3*c, 41}
	default:
		v = [9]float64{0.1 * s, 0.1 * c, 1, 0, 0, 250 * s, 22 * c, 22 * s, 41}
	}
	for i := range v {
		v[i] += m.noise(0.05)
	}
	return format(true, v)
}

func format(button bool, v [9]float64) string {
	var b strings.Builder
	if button {
		b.WriteString("1")
	} else {
		b.WriteString("0")
	}
	for _, x := range v {
		fmt.Fprintf(&b, ";%.2f", x)
	}
	return b.String()
}
