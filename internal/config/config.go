package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete AlignMate sensor configuration.
type Config struct {
	InstanceID       string         `yaml:"instance_id"`
	ShutdownTimeoutS int            `yaml:"shutdown_timeout_s"` // graceful shutdown timeout (default: 5)
	Analyzer         AnalyzerConfig `yaml:"analyzer"`
	Models           []ModelConfig  `yaml:"models"`
	Stream           StreamConfig   `yaml:"stream"`
	Remote           RemoteConfig   `yaml:"remote"`
	MQTT             MQTTConfig     `yaml:"mqtt"`
}

// AnalyzerConfig contains posture analysis settings.
type AnalyzerConfig struct {
	Discipline string  `yaml:"discipline"`   // salutation, attention, marching
	Preference string  `yaml:"preference"`   // model id to try first
	ScanRateHz float64 `yaml:"scan_rate_hz"` // maximum scans per second
}

// ModelConfig defines one pose model descriptor; list order is preference
// order, fastest first.
type ModelConfig struct {
	ID         string  `yaml:"id"`
	Path       string  `yaml:"path"`
	InputSize  int     `yaml:"input_size"`
	Confidence float64 `yaml:"confidence"`
}

// StreamConfig contains frame source settings.
type StreamConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// RemoteConfig contains the optional alternate analyzer endpoint.
type RemoteConfig struct {
	Host     string `yaml:"host,omitempty"` // empty disables the remote analyzer
	TimeoutS int    `yaml:"timeout_s"`
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Broker string          `yaml:"broker"`
	Topics MQTTTopics      `yaml:"topics"`
	QoS    map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic templates.
type MQTTTopics struct {
	Control string `yaml:"control"`
	Scans   string `yaml:"scans"`
	Health  string `yaml:"health"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
