package main

import (
	"context"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/app"
	"github.com/relabs-tech/gesture_controller/internal/config"
)

// classify runs the model over saved sample files. With no arguments it
// classifies every file listed in the label index.
func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	logLevel := flag.String("log-level", "", "log level override")
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

	if err := app.RunClassify(context.Background(), flag.Args(), os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
