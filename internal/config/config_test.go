package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
env: dev
gateway:
  id: "AA:BB:CC:DD:EE:FF"
radio:
  source: mqtt
  mqtt:
    broker: tcp://broker:1883
    topic: gw/rx
link:
  mode: interface
  interface: eth0
  poll_interval: 2s
forwarder:
  url: http://collector:3000/api/sensor-data
  timeout: 3s
log:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Gateway.ID)
	assert.Equal(t, "mqtt", cfg.Radio.Source)
	assert.Equal(t, "gw/rx", cfg.Radio.MQTT.Topic)
	assert.Equal(t, "interface", cfg.Link.Mode)
	assert.Equal(t, 2*time.Second, cfg.Link.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.Forwarder.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)

	// untouched sections keep their defaults
	assert.Equal(t, 20, cfg.Link.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Link.AttemptDelay)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, ":8080", cfg.Health.Address)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "serial", cfg.Radio.Source)
	assert.Equal(t, 115200, cfg.Radio.Serial.Baud)
	assert.Equal(t, "probe", cfg.Link.Mode)
	assert.Equal(t, time.Second, cfg.Link.PollInterval)
	assert.Equal(t, "http://localhost:3000/api/sensor-data", cfg.Forwarder.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("FORWARDER_URL", "https://collector.example/api")
	t.Setenv("GATEWAY_ID", "gw-1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://collector.example/api", cfg.Forwarder.URL)
	assert.Equal(t, "gw-1", cfg.Gateway.ID)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown radio source", func(c *Config) { c.Radio.Source = "spi" }},
		{"empty serial port", func(c *Config) { c.Radio.Serial.Port = "" }},
		{"mqtt without topic", func(c *Config) { c.Radio.Source = "mqtt"; c.Radio.MQTT.Topic = "" }},
		{"unknown link mode", func(c *Config) { c.Link.Mode = "wifi" }},
		{"zero attempts", func(c *Config) { c.Link.Attempts = 0 }},
		{"zero poll interval", func(c *Config) { c.Link.PollInterval = 0 }},
		{"empty url", func(c *Config) { c.Forwarder.URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
