package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "continuous", c.Relay.Mode)
	assert.Equal(t, 2*time.Second, c.Relay.PollInterval)
	assert.Equal(t, 10*time.Second, c.Relay.RequestTimeout)
	assert.Equal(t, 3, c.Relay.EnrichmentRetries)
	assert.Equal(t, "https://api.worldquantbrain.com/alphas", c.Relay.AlphaBaseURL)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, time.Hour, c.Cache.TTL)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
relay:
  mode: single_shot
  poll_interval: 500ms
  max_polls: 20
cache:
  enabled: true
  backend: redis
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "single_shot", c.Relay.Mode)
	assert.Equal(t, 500*time.Millisecond, c.Relay.PollInterval)
	assert.Equal(t, 20, c.Relay.MaxPolls)
	assert.Equal(t, "redis", c.Cache.Backend)
}

func TestValidateRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
environment: test
relay:
  mode: bursty
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay.mode")
}

func TestValidateRequiresEnvironment(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}

func TestEnvOverlay(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	t.Setenv("RELAY_MODE", "single_shot")
	t.Setenv("ALPHA_BASE_URL", "http://localhost:9000/alphas")
	t.Setenv("PORT", "7001")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "single_shot", c.Relay.Mode)
	assert.Equal(t, "http://localhost:9000/alphas", c.Relay.AlphaBaseURL)
	assert.Equal(t, 7001, c.Server.Port)
}
