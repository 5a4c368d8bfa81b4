package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
logger:
  level: debug
  format: console
gateway:
  host: 127.0.0.1
  port: 8080
ussd:
  default_timeout: 45s
  secure_mode: true
  default_country: KE
  default_carrier: Safaricom
history:
  type: redis
  max_entries: 50
  redis:
    addr: localhost:6379
    db: 2
platform:
  type: dialer
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, 45*time.Second, cfg.Ussd.DefaultTimeout)
	assert.True(t, cfg.Ussd.SecureMode)
	assert.Equal(t, "KE", cfg.Ussd.DefaultCountry)
	assert.Equal(t, "Safaricom", cfg.Ussd.DefaultCarrier)
	assert.Equal(t, "redis", cfg.History.Type)
	assert.Equal(t, 50, cfg.History.MaxEntries)
	assert.Equal(t, "localhost:6379", cfg.History.Redis.Addr)
	assert.Equal(t, 2, cfg.History.Redis.DB)
	assert.Equal(t, "dialer", cfg.Platform.Type)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
logger:
  level: info
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5335, cfg.Gateway.Port)
	assert.Equal(t, 30*time.Second, cfg.Ussd.DefaultTimeout)
	assert.Equal(t, "US", cfg.Ussd.DefaultCountry)
	assert.Equal(t, "memory", cfg.History.Type)
	assert.Equal(t, 100, cfg.History.MaxEntries)
	assert.Equal(t, "ussd:history", cfg.History.Redis.Prefix)
	assert.Equal(t, "simulated", cfg.Platform.Type)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("USSD_TEST_PORT", "9090")

	resolved := resolveEnv([]byte("port: ${USSD_TEST_PORT:5335}\nhost: ${USSD_TEST_HOST:0.0.0.0}"))
	assert.Equal(t, "port: 9090\nhost: 0.0.0.0", string(resolved))
}
