package imu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Delimiter separates fields in a receiver line.
const Delimiter = ";"

// FieldCount is the number of fields in a receiver data line: the button
// state followed by the nine channels.
const FieldCount = 1 + NumChannels

// NumChannels is the number of IMU channels streamed per line.
const NumChannels = 9

// Channels lists the channel names in wire order.
var Channels = [NumChannels]string{
	"acc_x", "acc_y", "acc_z", // g
	"gyr_x", "gyr_y", "gyr_z", // deg/s
	"mag_x", "mag_y", "mag_z", // µT
}

var (
	ErrFieldCount = errors.New("imu: wrong field count")
	ErrBadValue   = errors.New("imu: bad channel value")
)

// Reading represents a single line streamed by the controller receiver.
type Reading struct {
	Button bool `json:"button"` // true while the controller button is held

	Acc [3]float64 `json:"acc"`
	Gyr [3]float64 `json:"gyr"`
	Mag [3]float64 `json:"mag"`

	// Fields keeps the channel values exactly as received.
	Fields [NumChannels]string `json:"-"`
}

// Values returns the nine channel values in wire order.
func (r Reading) Values() [NumChannels]float64 {
	return [NumChannels]float64{
		r.Acc[0], r.Acc[1], r.Acc[2],
		r.Gyr[0], r.Gyr[1], r.Gyr[2],
		r.Mag[0], r.Mag[1], r.Mag[2],
	}
}

// ParseLine parses "<button>;<acc_x>;...;<mag_z>". Lines that do not
// split into exactly FieldCount fields return ErrFieldCount; the receiver
// interleaves free-form diagnostics with data lines.
//
// A value that is not a finite number (the receiver prints "ovf", "nan"
// and "inf") returns ErrBadValue together with a Reading that carries only
// the button state, so a damaged release line still ends a gesture.
func ParseLine(line string) (Reading, error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, Delimiter)
	if len(parts) != FieldCount {
		return Reading{}, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(parts), FieldCount)
	}

	r := Reading{Button: parts[0] == "1"}
	var vals [NumChannels]float64
	for i := 0; i < NumChannels; i++ {
		field := strings.TrimSpace(parts[i+1])
		v, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Reading{Button: r.Button}, fmt.Errorf("%w: %s=%q", ErrBadValue, Channels[i], field)
		}
		vals[i] = v
		r.Fields[i] = field
	}
	copy(r.Acc[:], vals[0:3])
	copy(r.Gyr[:], vals[3:6])
	copy(r.Mag[:], vals[6:9])

	return r, nil
}
