package config

import (
	"fmt"
	"regexp"

	"github.com/e7canasta/orion-playout/modules/frame"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks if the configuration is valid and fills defaults
func Validate(cfg *Config) error {
	// Validate instance_id
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.PipelineTokens == 0 {
		cfg.PipelineTokens = 2
	}
	if cfg.PipelineTokens < 1 {
		return fmt.Errorf("pipeline_tokens must be >= 1, got %d", cfg.PipelineTokens)
	}
	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	if err := ValidateChannels(cfg.Channels); err != nil {
		return fmt.Errorf("channel validation failed: %w", err)
	}

	if cfg.Bridge.LayerCapacity <= 0 {
		cfg.Bridge.LayerCapacity = 2
	}
	if cfg.Bridge.ChannelCapacity <= 0 {
		cfg.Bridge.ChannelCapacity = 3
	}
	if cfg.Bridge.FirstFrameTimeoutMs <= 0 {
		cfg.Bridge.FirstFrameTimeoutMs = 2000
	}

	// Validate MQTT broker
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = fmt.Sprintf("playout-%s", cfg.InstanceID)
	}

	// Set default topics if not provided
	if cfg.MQTT.Topics.Control == "" {
		cfg.MQTT.Topics.Control = fmt.Sprintf("playout/control/%s", cfg.InstanceID)
	}
	if cfg.MQTT.Topics.Monitor == "" {
		cfg.MQTT.Topics.Monitor = fmt.Sprintf("playout/monitor/%s", cfg.InstanceID)
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}

	return nil
}

// ValidateChannels checks channel indices are unique and formats are known
func ValidateChannels(channels []ChannelConfig) error {
	if len(channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}

	seen := make(map[int]bool, len(channels))
	for i, ch := range channels {
		if ch.Index < 1 {
			return fmt.Errorf("channel %d: index must be >= 1, got %d", i, ch.Index)
		}
		if seen[ch.Index] {
			return fmt.Errorf("channel %d: duplicate index %d", i, ch.Index)
		}
		seen[ch.Index] = true

		if _, ok := frame.FormatByName(ch.Format); !ok {
			return fmt.Errorf("channel %d: unknown format '%s' (known: %v)",
				ch.Index, ch.Format, frame.FormatNames())
		}
	}

	return nil
}
