package app

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/gesture"
	"github.com/relabs-tech/gesture_controller/internal/imu"
	"github.com/relabs-tech/gesture_controller/internal/orientation"
)

// sampler is the accumulate-until-sentinel stage shared by the recorder
// and the predictor: parse a receiver line, optionally publish it raw, and
// feed it to the gesture accumulator.
type sampler struct {
	acc        *gesture.Accumulator
	pub        Publisher
	topicIMU   string
	publishRaw bool

	skipped uint64
}

func newSampler(minLen int, pub Publisher, topicIMU string, publishRaw bool) *sampler {
	return &sampler{
		acc:        gesture.NewAccumulator(minLen),
		pub:        pub,
		topicIMU:   topicIMU,
		publishRaw: publishRaw,
	}
}

// feed returns a finished gesture when line closes one.
func (s *sampler) feed(line string) (*gesture.Sample, bool) {
	r, err := imu.ParseLine(line)
	switch {
	case err == nil:
	case errors.Is(err, imu.ErrBadValue) && !r.Button:
		// still the release edge; its values are never buffered
		log.Warnf("release line with bad value %q: %v", line, err)
		return s.acc.Feed(r)
	case errors.Is(err, imu.ErrFieldCount):
		// receiver diagnostics
		s.skipped++
		log.Debugf("receiver: %s", line)
		return nil, false
	default:
		s.skipped++
		log.Warnf("dropping line %q: %v", line, err)
		return nil, false
	}

	if s.publishRaw {
		msg := IMUMessage{
			Reading: r,
			Pose:    orientation.PoseFromReading(r),
			Time:    time.Now().Format(time.RFC3339Nano),
		}
		if err := s.pub.Publish(s.topicIMU, false, msg); err != nil {
			log.Debugf("raw publish: %v", err)
		}
	}

	return s.acc.Feed(r)
}
