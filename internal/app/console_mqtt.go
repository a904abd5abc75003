package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/config"
)

// console prints bus traffic in a fixed-width format.
type console struct {
	out io.Writer
}

func (c console) imu(payload []byte) {
	var m IMUMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Warnf("console: imu unmarshal error: %v", err)
		return
	}
	btn := " "
	if m.Button {
		btn = "*"
	}
	fmt.Fprintf(c.out,
		"[IMU %s] ax=%6.2f ay=%6.2f az=%6.2f  gx=%8.2f gy=%8.2f gz=%8.2f  mx=%7.2f my=%7.2f mz=%7.2f  R=%6.1f P=%6.1f Y=%5.1f\n",
		btn, m.Acc[0], m.Acc[1], m.Acc[2], m.Gyr[0], m.Gyr[1], m.Gyr[2], m.Mag[0], m.Mag[1], m.Mag[2],
		m.Pose.Roll, m.Pose.Pitch, m.Pose.Yaw,
	)
}

func (c console) sample(payload []byte) {
	var m SampleMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Warnf("console: sample unmarshal error: %v", err)
		return
	}
	fmt.Fprintf(c.out, "[SAMPLE] label=%d readings=%d duration=%.2fs file=%s\n",
		m.Label, m.Count, m.DurationSec, m.Path)
}

func (c console) prediction(payload []byte) {
	var m PredictionMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Warnf("console: prediction unmarshal error: %v", err)
		return
	}
	fmt.Fprintf(c.out, "[GESTURE] class=%d readings=%d duration=%.2fs at %s\n",
		m.Class, m.Count, m.DurationSec, m.Time)
}

// RunConsoleMQTT prints raw readings, recorded samples and predictions
// from the bus until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the console")
	}

	pub, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer pub.Close()

	c := console{out: os.Stdout}
	subs := []struct {
		topic  string
		handle func([]byte)
	}{
		{cfg.TopicIMU, c.imu},
		{cfg.TopicSample, c.sample},
		{cfg.TopicPrediction, c.prediction},
	}
	for _, s := range subs {
		if err := pub.Subscribe(s.topic, s.handle); err != nil {
			return err
		}
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("console: shutting down")
	return nil
}
