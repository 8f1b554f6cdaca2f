package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete playout server configuration
type Config struct {
	InstanceID       string          `yaml:"instance_id"`
	PipelineTokens   int             `yaml:"pipeline_tokens"`    // frames in flight per channel (default: 2)
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	Channels         []ChannelConfig `yaml:"channels"`
	Bridge           BridgeConfig    `yaml:"bridge"`
	MQTT             MQTTConfig      `yaml:"mqtt"`
	HTTP             HTTPConfig      `yaml:"http"`
	Debug            bool            `yaml:"debug"`
}

// ChannelConfig defines one video channel
type ChannelConfig struct {
	Index  int    `yaml:"index"`
	Format string `yaml:"format"` // pal, ntsc, 720p5000, 1080i5000, ...
	Pacing *bool  `yaml:"pacing,omitempty"`
}

// BridgeConfig contains frame bridge settings
type BridgeConfig struct {
	LayerCapacity       int `yaml:"layer_capacity"`
	ChannelCapacity     int `yaml:"channel_capacity"`
	FirstFrameTimeoutMs int `yaml:"first_frame_timeout_ms"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker   string     `yaml:"broker"`
	ClientID string     `yaml:"client_id"`
	Topics   MQTTTopics `yaml:"topics"`
	QoS      byte       `yaml:"qos"`
}

// MQTTTopics contains topic roots
type MQTTTopics struct {
	Monitor string `yaml:"monitor"`
	Control string `yaml:"control"`
}

// HTTPConfig contains the health endpoint settings
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// FirstFrameTimeout returns the bridge barrier timeout.
func (b BridgeConfig) FirstFrameTimeout() time.Duration {
	return time.Duration(b.FirstFrameTimeoutMs) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// PacingEnabled reports whether the channel paces itself (default: true).
func (c ChannelConfig) PacingEnabled() bool {
	return c.Pacing == nil || *c.Pacing
}

// Load reads and parses a YAML configuration file.
// A .env file next to the process, if any, and PLAYOUT_* environment
// variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// envFile is the optional dotenv file read before the environment overlay.
var envFile = ".env"

// loadEnv loads path into the process environment. A missing file is fine.
func loadEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Parse parses YAML, applies the environment overlay and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := loadEnv(envFile); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnv overrides selected keys from PLAYOUT_* variables.
func applyEnv(cfg *Config) error {
	if val := os.Getenv("PLAYOUT_INSTANCE_ID"); val != "" {
		cfg.InstanceID = val
	}
	if val := os.Getenv("PLAYOUT_MQTT_BROKER"); val != "" {
		cfg.MQTT.Broker = val
	}
	if val := os.Getenv("PLAYOUT_MQTT_CLIENT_ID"); val != "" {
		cfg.MQTT.ClientID = val
	}
	if val := os.Getenv("PLAYOUT_HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PLAYOUT_PIPELINE_TOKENS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PLAYOUT_PIPELINE_TOKENS: %w", err)
		}
		cfg.PipelineTokens = n
	}
	if val := os.Getenv("PLAYOUT_DEBUG"); val != "" {
		debug, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("PLAYOUT_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}
	return nil
}
