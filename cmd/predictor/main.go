// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/app"
	"github.com/relabs-tech/gesture_controller/internal/config"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	logLevel := flag.String("log-level", "", "log level override (panic, fatal, error, warn, info, debug, trace)")
	mock := flag.Bool("mock", false, "use a mock controller instead of the serial receiver")
	replay := flag.String("replay", "", "replay a captured receiver log instead of the serial port")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := app.SetupLogging(cfg.LogLevel); err != nil {
		log.Fatalf("%v", err)
	}

	log.Println("starting live gesture predictor (receiver → classifier)")

	open, opts, err := app.ReceiverOpener(cfg, *mock, *replay)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunPredictor(ctx, open, opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
