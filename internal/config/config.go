// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	// Serial (controller receiver)
	SerialPort       string
	SerialBaudRate   int
	ReconnectDelayMs int

	// Gesture sampling
	SampleSizeMin int // minimum character length of the first channel buffer
	GestureLabel  int

	// Dataset storage
	DataRootDir string
	DataDirName string
	IndexFile   string

	// Classifier
	ModelPath           string
	ClassifierCmd       string
	ClassifierTimeoutMs int
	FeaturePoints       int

	// MQTT (optional; empty broker disables publishing)
	MQTTBroker            string
	MQTTClientIDRecorder  string
	MQTTClientIDPredictor string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string

	// Topics
	TopicIMU        string
	TopicSample     string
	TopicPrediction string
	TopicLabel      string
	PublishRaw      bool

	// Web Server
	WebServerPort int

	// Logging: panic, fatal, error, warn, info, debug, trace
	LogLevel string
}

// Package-level singleton. InitGlobal sets it once, Get reads it.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value filled in.
// The serial port has no sensible default and is left empty.
func Default() *Config {
	return &Config{
		SerialBaudRate:   15200,
		ReconnectDelayMs: 5000,

		SampleSizeMin: 20,

		DataRootDir: "./",
		DataDirName: "data_files",
		IndexFile:   "vr_handheld_controller_gesture_data.csv",

		ClassifierTimeoutMs: 2000,
		FeaturePoints:       50,

		MQTTClientIDRecorder:  "gesture-recorder",
		MQTTClientIDPredictor: "gesture-predictor",
		MQTTClientIDConsole:   "gesture-console",
		MQTTClientIDWeb:       "gesture-web",

		TopicIMU:        "controller/imu",
		TopicSample:     "controller/gesture/sample",
		TopicPrediction: "controller/gesture/prediction",
		TopicLabel:      "controller/gesture/label",

		WebServerPort: 8080,
		LogLevel:      "info",
	}
}

// Load reads the configuration file and returns a Config struct.
// Files ending in .yaml or .yml are parsed as a flat YAML mapping of the
// same keys; anything else is read as KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg *Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(file)
	default:
		cfg, err = parseKeyValue(file)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseKeyValue(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return cfg, nil
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := Default()

	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return cfg, nil
		}
		return nil, fmt.Errorf("error parsing yaml config: %w", err)
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("yaml config must be a mapping, got line %d", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("config line %d: %q must be a scalar", k.Line, k.Value)
		}
		if err := cfg.setValue(strings.ToUpper(k.Value), v.Value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", k.Line, err)
		}
	}
	return cfg, nil
}

func parseInt(key, value string, min int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < min {
		return 0, fmt.Errorf("%s must be >= %d, got %d", key, min, n)
	}
	return n, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 1)
	case "RECONNECT_DELAY_MS":
		c.ReconnectDelayMs, err = parseInt(key, value, 0)

	// Gesture sampling
	case "SAMPLE_SIZE_MIN":
		c.SampleSizeMin, err = parseInt(key, value, 0)
	case "GESTURE_LABEL":
		c.GestureLabel, err = parseInt(key, value, 0)

	// Dataset storage
	case "DATA_ROOT_DIR":
		c.DataRootDir = value
	case "DATA_DIR_NAME":
		c.DataDirName = value
	case "INDEX_FILE":
		c.IndexFile = value

	// Classifier
	case "MODEL_PATH":
		c.ModelPath = value
	case "CLASSIFIER_CMD":
		c.ClassifierCmd = value
	case "CLASSIFIER_TIMEOUT_MS":
		c.ClassifierTimeoutMs, err = parseInt(key, value, 1)
	case "FEATURE_POINTS":
		c.FeaturePoints, err = parseInt(key, value, 2)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RECORDER":
		c.MQTTClientIDRecorder = value
	case "MQTT_CLIENT_ID_PREDICTOR":
		c.MQTTClientIDPredictor = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_SAMPLE":
		c.TopicSample = value
	case "TOPIC_PREDICTION":
		c.TopicPrediction = value
	case "TOPIC_LABEL":
		c.TopicLabel = value
	case "PUBLISH_RAW":
		b, perr := strconv.ParseBool(value)
		if perr != nil {
			return fmt.Errorf("invalid PUBLISH_RAW %q: %w", value, perr)
		}
		c.PublishRaw = b

	// Web Server
	case "WEB_SERVER_PORT":
		port, perr := parseInt(key, value, 1)
		if perr != nil {
			return perr
		}
		if port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be <= 65535, got %d", port)
		}
		c.WebServerPort = port

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field constraints. Presence of the serial port is
// checked by the tools that need it, see RequireSerial.
func (c *Config) validate() error {
	if c.MQTTBroker != "" {
		if c.TopicIMU == "" || c.TopicSample == "" || c.TopicPrediction == "" || c.TopicLabel == "" {
			return fmt.Errorf("all TOPIC_* keys are required when MQTT_BROKER is set")
		}
	}
	if c.IndexFile == "" {
		return fmt.Errorf("INDEX_FILE is required")
	}
	if c.DataDirName == "" {
		return fmt.Errorf("DATA_DIR_NAME is required")
	}
	return nil
}

// RequireSerial reports an error when no serial port is configured.
func (c *Config) RequireSerial() error {
	if c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
