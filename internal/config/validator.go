package config

import (
	"fmt"
	"regexp"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills in defaults.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	// Analyzer settings.
	if cfg.Analyzer.Discipline == "" {
		cfg.Analyzer.Discipline = string(types.DisciplineAttention)
	}
	if !types.Discipline(cfg.Analyzer.Discipline).Valid() {
		return fmt.Errorf("analyzer.discipline %q is not one of salutation, attention, marching",
			cfg.Analyzer.Discipline)
	}
	if cfg.Analyzer.ScanRateHz <= 0 {
		cfg.Analyzer.ScanRateHz = 0.5
	}

	// Model registry.
	if len(cfg.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	ids := make(map[string]struct{}, len(cfg.Models))
	for i, m := range cfg.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d]: id is required", i)
		}
		if _, dup := ids[m.ID]; dup {
			return fmt.Errorf("models[%d]: duplicate id %q", i, m.ID)
		}
		ids[m.ID] = struct{}{}
		if m.Path == "" {
			return fmt.Errorf("model %q: path is required", m.ID)
		}
		if m.InputSize <= 0 {
			return fmt.Errorf("model %q: input_size must be > 0", m.ID)
		}
		if m.Confidence <= 0 || m.Confidence >= 1 {
			return fmt.Errorf("model %q: confidence must be in (0,1)", m.ID)
		}
	}
	if cfg.Analyzer.Preference != "" {
		if _, ok := ids[cfg.Analyzer.Preference]; !ok {
			return fmt.Errorf("analyzer.preference %q not found in models", cfg.Analyzer.Preference)
		}
	}

	// Stream defaults.
	if cfg.Stream.Width <= 0 {
		cfg.Stream.Width = 640
	}
	if cfg.Stream.Height <= 0 {
		cfg.Stream.Height = 480
	}
	if cfg.Stream.FPS <= 0 {
		cfg.Stream.FPS = 10
	}

	// Remote analyzer.
	if cfg.Remote.TimeoutS <= 0 {
		cfg.Remote.TimeoutS = 3
	}

	// MQTT broker and topics.
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if cfg.MQTT.Topics.Control == "" {
		cfg.MQTT.Topics.Control = fmt.Sprintf("alignmate/control/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Scans == "" {
		cfg.MQTT.Topics.Scans = fmt.Sprintf("alignmate/scans/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Health == "" {
		cfg.MQTT.Topics.Health = fmt.Sprintf("alignmate/health/%s", cfg.InstanceID)
	}
	if cfg.MQTT.QoS == nil {
		cfg.MQTT.QoS = map[string]byte{
			"control": 1,
			"scans":   1,
			"health":  0,
		}
	}

	return nil
}
