package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// SetupLogging sets the global log level by name (panic, fatal, error,
// warn, info, debug, trace).
func SetupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level [%s]: %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}
