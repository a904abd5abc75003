// Package features turns a variable-length gesture into the fixed-size
// input vector the classifier expects.
package features

import (
	"fmt"

	"github.com/relabs-tech/gesture_controller/internal/imu"
)

// Interpolate linearly resamples every channel to points evenly spaced
// samples and flattens the result channel-major: all acc_x points, then
// all acc_y points, and so on.
func Interpolate(values [imu.NumChannels][]float64, points int) ([]float64, error) {
	if points < 2 {
		return nil, fmt.Errorf("features: need at least 2 points, got %d", points)
	}

	out := make([]float64, 0, imu.NumChannels*points)
	for i, ch := range values {
		if len(ch) == 0 {
			return nil, fmt.Errorf("features: channel %s is empty", imu.Channels[i])
		}
		out = append(out, resample(ch, points)...)
	}
	return out, nil
}

// resample maps points evenly over [0, len(src)-1] and interpolates.
func resample(src []float64, points int) []float64 {
	dst := make([]float64, points)
	if len(src) == 1 {
		for i := range dst {
			dst[i] = src[0]
		}
		return dst
	}

	step := float64(len(src)-1) / float64(points-1)
	for i := range dst {
		x := float64(i) * step
		lo := int(x)
		if lo >= len(src)-1 {
			dst[i] = src[len(src)-1]
			continue
		}
		frac := x - float64(lo)
		dst[i] = src[lo] + (src[lo+1]-src[lo])*frac
	}
	return dst
}

// Len is the feature vector length for the given resample size.
func Len(points int) int { return imu.NumChannels * points }
