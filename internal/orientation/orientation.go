package orientation

import (
	"math"

	"github.com/relabs-tech/gesture_controller/internal/imu"
)

// Pose is the controller attitude in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is left at 0.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}

// PoseFromReading adds a tilt-compensated magnetic heading, in [0, 360),
// to the accelerometer tilt.
func PoseFromReading(r imu.Reading) Pose {
	p := ComputePoseFromAccel(r.Acc[0], r.Acc[1], r.Acc[2])

	roll := p.Roll * math.Pi / 180.0
	pitch := p.Pitch * math.Pi / 180.0
	mx, my, mz := r.Mag[0], r.Mag[1], r.Mag[2]

	// rotate the field back into the horizontal plane
	xh := mx*math.Cos(pitch) + mz*math.Sin(pitch)
	yh := mx*math.Sin(roll)*math.Sin(pitch) + my*math.Cos(roll) - mz*math.Sin(roll)*math.Cos(pitch)

	yaw := math.Atan2(-yh, xh) * 180.0 / math.Pi
	if yaw < 0 {
		yaw += 360
	}
	p.Yaw = yaw
	return p
}
