package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/constants"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `{"database": {"path": "relay.db"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "relay.db", cfg.Database.Path)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, int64(constants.DefaultSocketReadLimitBytes), cfg.Socket.ReadLimitBytes)
	assert.Equal(t, constants.DefaultPushBufferSize, cfg.Socket.PushBufferSize)
	assert.Equal(t, constants.DefaultRegistryBreakerMaxFailures, cfg.Registry.BreakerMaxFailures)
	assert.Equal(t, constants.DefaultBacklogCheckIntervalSec, cfg.Monitor.CheckIntervalSec)
	assert.Equal(t, constants.DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `{
		"database": {"path": "relay.db"},
		"server": {"port": 9000},
		"log_level": "debug",
		"retentionDays": 7
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7, cfg.RetentionDays)
}

func TestLoadConfigMissingDBPath(t *testing.T) {
	path := writeConfigFile(t, `{}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingDBPath)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := writeConfigFile(t, `{not json`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadConfigTraversalPath(t *testing.T) {
	_, err := LoadConfig("../../etc/config.json")
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfigFile(t, `{"database": {"path": "relay.db"}}`)

	t.Setenv("CHATRELAY_DB_PATH", "/tmp/other.db")
	t.Setenv("CHATRELAY_PORT", "9091")
	t.Setenv("CHATRELAY_LOG_LEVEL", "warn")
	t.Setenv("CHATRELAY_TRACING_ENABLED", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, 9091, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Tracing.Enabled)
}
