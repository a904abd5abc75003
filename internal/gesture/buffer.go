package gesture

import (
	"strings"

	"github.com/relabs-tech/gesture_controller/internal/imu"
)

// Buffer accumulates one gesture: nine parallel channel buffers, each a
// comma-joined run of readings ("v1,v2,...,vn,").
type Buffer struct {
	rows   [imu.NumChannels]strings.Builder
	values [imu.NumChannels][]float64
	count  int
}

// Append adds one reading to every channel.
func (b *Buffer) Append(r imu.Reading) {
	vals := r.Values()
	for i := range b.rows {
		b.rows[i].WriteString(r.Fields[i])
		b.rows[i].WriteByte(',')
		b.values[i] = append(b.values[i], vals[i])
	}
	b.count++
}

// Reset empties all channels.
func (b *Buffer) Reset() {
	for i := range b.rows {
		b.rows[i].Reset()
		b.values[i] = nil
	}
	b.count = 0
}

// Len is the character length of the first channel buffer. Flush
// thresholds are expressed in this unit.
func (b *Buffer) Len() int { return b.rows[0].Len() }

// Samples is the number of readings appended since the last reset.
func (b *Buffer) Samples() int { return b.count }

// Ready reports whether the buffer is strictly longer than min.
func (b *Buffer) Ready(min int) bool { return b.Len() > min }

// Rows returns a copy of the channel buffers.
func (b *Buffer) Rows() [imu.NumChannels]string {
	var out [imu.NumChannels]string
	for i := range b.rows {
		out[i] = b.rows[i].String()
	}
	return out
}

// Values returns the parsed channel values. The slices are owned by the
// caller; Reset does not touch them.
func (b *Buffer) Values() [imu.NumChannels][]float64 {
	var out [imu.NumChannels][]float64
	for i := range b.values {
		out[i] = append([]float64(nil), b.values[i]...)
	}
	return out
}
