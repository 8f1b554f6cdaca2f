package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
instance_id: studio-a
channels:
  - index: 1
    format: 1080i5000
  - index: 2
    format: 720p5000
    pacing: false
mqtt:
  broker: tcp://localhost:1883
`

func TestParseFillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.PipelineTokens)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, 2, cfg.Bridge.LayerCapacity)
	assert.Equal(t, 3, cfg.Bridge.ChannelCapacity)
	assert.Equal(t, 2*time.Second, cfg.Bridge.FirstFrameTimeout())
	assert.Equal(t, "playout-studio-a", cfg.MQTT.ClientID)
	assert.Equal(t, "playout/control/studio-a", cfg.MQTT.Topics.Control)
	assert.Equal(t, "playout/monitor/studio-a", cfg.MQTT.Topics.Monitor)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	require.Len(t, cfg.Channels, 2)
	assert.True(t, cfg.Channels[0].PacingEnabled())
	assert.False(t, cfg.Channels[1].PacingEnabled())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "studio-a", cfg.InstanceID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PLAYOUT_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("PLAYOUT_PIPELINE_TOKENS", "4")
	t.Setenv("PLAYOUT_DEBUG", "true")

	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, 4, cfg.PipelineTokens)
	assert.True(t, cfg.Debug)

	t.Setenv("PLAYOUT_PIPELINE_TOKENS", "many")
	_, err = Parse([]byte(minimal))
	assert.ErrorContains(t, err, "PLAYOUT_PIPELINE_TOKENS")
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, loadEnv(filepath.Join(dir, "missing.env")))

	good := filepath.Join(dir, "good.env")
	require.NoError(t, os.WriteFile(good, []byte("PLAYOUT_TEST_DOTENV=loaded\n"), 0o644))
	t.Setenv("PLAYOUT_TEST_DOTENV", "")
	os.Unsetenv("PLAYOUT_TEST_DOTENV")
	require.NoError(t, loadEnv(good))
	assert.Equal(t, "loaded", os.Getenv("PLAYOUT_TEST_DOTENV"))

	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("BROKEN-KEY=\"unterminated\n"), 0o644))
	assert.ErrorContains(t, loadEnv(bad), "bad.env")

	old := envFile
	envFile = bad
	t.Cleanup(func() { envFile = old })
	_, err := Parse([]byte(minimal))
	assert.Error(t, err, "a malformed .env must not be ignored")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing instance", func(c *Config) { c.InstanceID = "" }, "instance_id is required"},
		{"bad instance", func(c *Config) { c.InstanceID = "Studio A" }, "instance_id must match"},
		{"negative tokens", func(c *Config) { c.PipelineTokens = -1 }, "pipeline_tokens"},
		{"no channels", func(c *Config) { c.Channels = nil }, "at least one channel"},
		{"duplicate index", func(c *Config) { c.Channels[1].Index = 1 }, "duplicate index"},
		{"unknown format", func(c *Config) { c.Channels[0].Format = "8k" }, "unknown format"},
		{"zero index", func(c *Config) { c.Channels[0].Index = 0 }, "index must be >= 1"},
		{"missing broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker is required"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				InstanceID: "studio-a",
				Channels: []ChannelConfig{
					{Index: 1, Format: "pal"},
					{Index: 2, Format: "ntsc"},
				},
				MQTT: MQTTConfig{Broker: "tcp://localhost:1883"},
			}
			tt.mutate(cfg)
			assert.ErrorContains(t, Validate(cfg), tt.want)
		})
	}
}
