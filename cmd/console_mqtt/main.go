package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gesture_controller/internal/app"
	"github.com/relabs-tech/gesture_controller/internal/config"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	flag.Parse()

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := app.SetupLogging(config.Get().LogLevel); err != nil {
		log.Fatalf("%v", err)
	}

	log.Println("starting gesture console (MQTT subscriber)")

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
