package gesture

import (
	"time"

	"github.com/relabs-tech/gesture_controller/internal/imu"
)

// Sample is a finished gesture, ready to be stored or classified.
type Sample struct {
	Rows     [imu.NumChannels]string    `json:"rows"`
	Values   [imu.NumChannels][]float64 `json:"values"`
	Count    int                        `json:"count"`
	Duration time.Duration              `json:"duration"`
	EndedAt  time.Time                  `json:"ended_at"`
}

// Accumulator drives the append / flush / reset cycle. Readings with the
// button held are appended; any other reading is the end-of-gesture
// sentinel. On the sentinel the buffer is flushed as a Sample if it is long
// enough, and always reset.
type Accumulator struct {
	buf     Buffer
	minLen  int
	now     func() time.Time
	lastSet time.Time
}

// NewAccumulator returns an Accumulator flushing buffers whose first
// channel is longer than minLen characters.
func NewAccumulator(minLen int) *Accumulator {
	return newAccumulatorWithClock(minLen, time.Now)
}

func newAccumulatorWithClock(minLen int, now func() time.Time) *Accumulator {
	return &Accumulator{minLen: minLen, now: now, lastSet: now()}
}

// Feed consumes one reading. It returns the finished sample and true when
// the reading closed a gesture long enough to keep.
func (a *Accumulator) Feed(r imu.Reading) (*Sample, bool) {
	if r.Button {
		a.buf.Append(r)
		return nil, false
	}

	var s *Sample
	if a.buf.Ready(a.minLen) {
		t := a.now()
		s = &Sample{
			Rows:     a.buf.Rows(),
			Values:   a.buf.Values(),
			Count:    a.buf.Samples(),
			Duration: t.Sub(a.lastSet),
			EndedAt:  t,
		}
	}
	a.buf.Reset()
	a.lastSet = a.now()
	return s, s != nil
}

// Pending is the number of readings in the current, unfinished gesture.
func (a *Accumulator) Pending() int { return a.buf.Samples() }
