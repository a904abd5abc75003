// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/imu"
	"github.com/relabs-tech/gesture_controller/internal/orientation"
)

// printReading writes one receiver line as button state plus attitude.
// Lines that are not readings are skipped.
func printReading(w io.Writer, line string) {
	r, err := imu.ParseLine(line)
	if err != nil {
		log.Debugf("console: skip %q: %v", line, err)
		return
	}
	pose := orientation.PoseFromReading(r)
	btn := " "
	if r.Button {
		btn = "●"
	}
	fmt.Fprintf(w,
		"%s ROLL=%7.2f  PITCH=%7.2f  YAW=%6.2f  ACC=(%6.2f,%6.2f,%6.2f)  GYR=(%7.2f,%7.2f,%7.2f)\n",
		btn, pose.Roll, pose.Pitch, pose.Yaw,
		r.Acc[0], r.Acc[1], r.Acc[2],
		r.Gyr[0], r.Gyr[1], r.Gyr[2],
	)
}

// RunConsole prints the receiver stream directly, without MQTT.
func RunConsole(ctx context.Context, open Opener, opts StreamOptions, w io.Writer) error {
	err := Stream(ctx, open, opts, func(line string) { printReading(w, line) })
	if err == context.Canceled {
		return nil
	}
	return err
}
