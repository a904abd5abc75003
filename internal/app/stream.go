// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/config"
	"github.com/relabs-tech/gesture_controller/internal/controller"
	"github.com/relabs-tech/gesture_controller/internal/serialport"
)

// Opener (re)opens the line source feeding a stream.
type Opener func() (serialport.LineSource, error)

// StreamOptions controls reconnect behaviour.
type StreamOptions struct {
	ReconnectDelay time.Duration
	StopOnEOF      bool // replayed files end; serial ports only drop
}

// Stream reads lines from the source returned by open and hands each to
// handle. When the source fails it is closed, and after ReconnectDelay a
// new one is opened. Stream returns when ctx is done, or at io.EOF if
// StopOnEOF is set.
func Stream(ctx context.Context, open Opener, opts StreamOptions, handle func(line string)) error {
	for {
		src, err := open()
		if err != nil {
			if opts.StopOnEOF {
				return err
			}
			log.Errorf("open receiver: %v", err)
			if !sleepCtx(ctx, opts.ReconnectDelay) {
				return ctx.Err()
			}
			continue
		}
		log.Info("receiver connected")

		err = readLines(ctx, src, handle)
		_ = src.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) && opts.StopOnEOF {
			log.Info("end of input")
			return nil
		}

		log.Warnf("Connection ended: %v (reconnecting in %s)", err, opts.ReconnectDelay)
		if !sleepCtx(ctx, opts.ReconnectDelay) {
			return ctx.Err()
		}
	}
}

func readLines(ctx context.Context, src serialport.LineSource, handle func(string)) error {
	// a blocked ReadLine only returns once the source is closed
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = src.Close()
		case <-done:
		}
	}()

	for {
		line, err := src.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		handle(line)
	}
}

// sleepCtx waits d and reports whether ctx is still live.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ReceiverOpener picks the line source for the recorder and predictor:
// the mock controller, a replayed capture file, or the serial port from
// cfg.
func ReceiverOpener(cfg *config.Config, mock bool, replay string) (Opener, StreamOptions, error) {
	opts := StreamOptions{ReconnectDelay: time.Duration(cfg.ReconnectDelayMs) * time.Millisecond}

	switch {
	case mock:
		log.Info("using mock controller source")
		return func() (serialport.LineSource, error) {
			return controller.NewMockSource(controller.DefaultMockOptions()), nil
		}, opts, nil

	case replay != "":
		log.Infof("replaying receiver capture %s", replay)
		opts.StopOnEOF = true
		return func() (serialport.LineSource, error) {
			f, err := os.Open(replay)
			if err != nil {
				return nil, err
			}
			return serialport.NewReaderSource(f), nil
		}, opts, nil

	default:
		if err := cfg.RequireSerial(); err != nil {
			return nil, opts, err
		}
		log.Infof("reading receiver on %s at %d baud", cfg.SerialPort, cfg.SerialBaudRate)
		return func() (serialport.LineSource, error) {
			return serialport.Open(cfg.SerialPort, cfg.SerialBaudRate)
		}, opts, nil
	}
}
