package app

import (
	"time"

	"github.com/relabs-tech/gesture_controller/internal/gesture"
	"github.com/relabs-tech/gesture_controller/internal/imu"
	"github.com/relabs-tech/gesture_controller/internal/orientation"
)

// IMUMessage is one raw reading as published on TOPIC_IMU.
type IMUMessage struct {
	imu.Reading
	Pose orientation.Pose `json:"pose"`
	Time string           `json:"time"` // RFC3339Nano
}

// SampleMessage announces a recorded training sample on TOPIC_SAMPLE.
type SampleMessage struct {
	Path        string                     `json:"path"`
	Label       int                        `json:"label"`
	Count       int                        `json:"count"`
	DurationSec float64                    `json:"duration_sec"`
	Time        string                     `json:"time"`
	Values      [imu.NumChannels][]float64 `json:"values"`
}

// PredictionMessage announces a live prediction on TOPIC_PREDICTION.
type PredictionMessage struct {
	Class       int                        `json:"class"`
	Scores      []float64                  `json:"scores,omitempty"`
	Count       int                        `json:"count"`
	DurationSec float64                    `json:"duration_sec"`
	Time        string                     `json:"time"`
	Values      [imu.NumChannels][]float64 `json:"values"`
}

// LabelMessage sets the label the recorder applies, on TOPIC_LABEL.
type LabelMessage struct {
	Label int `json:"label"`
}

func newSampleMessage(s *gesture.Sample, path string, label int) SampleMessage {
	return SampleMessage{
		Path:        path,
		Label:       label,
		Count:       s.Count,
		DurationSec: s.Duration.Seconds(),
		Time:        s.EndedAt.Format(time.RFC3339),
		Values:      s.Values,
	}
}
