// Package config loads and validates the relay configuration from a JSON
// file with environment overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"chatrelay/internal/constants"
	"chatrelay/internal/models"
	"chatrelay/internal/security"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads a JSON config file, fills in defaults, and applies
// environment overrides.
func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.CleanupIntervalHours <= 0 {
		c.Server.CleanupIntervalHours = constants.DefaultCleanupIntervalHours
	}

	if c.Socket.ReadLimitBytes <= 0 {
		c.Socket.ReadLimitBytes = constants.DefaultSocketReadLimitBytes
	}
	if c.Socket.PushBufferSize <= 0 {
		c.Socket.PushBufferSize = constants.DefaultPushBufferSize
	}
	if c.Socket.RegisterTimeoutSec <= 0 {
		c.Socket.RegisterTimeoutSec = constants.DefaultRegisterTimeoutSec
	}

	if c.Registry.BreakerMaxFailures <= 0 {
		c.Registry.BreakerMaxFailures = constants.DefaultRegistryBreakerMaxFailures
	}
	if c.Registry.BreakerTimeoutSec <= 0 {
		c.Registry.BreakerTimeoutSec = constants.DefaultRegistryBreakerTimeoutSec
	}

	if c.Monitor.CheckIntervalSec <= 0 {
		c.Monitor.CheckIntervalSec = constants.DefaultBacklogCheckIntervalSec
	}
	if c.Monitor.StaleThresholdSec <= 0 {
		c.Monitor.StaleThresholdSec = constants.DefaultBacklogStaleThresholdSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	}

	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("CHATRELAY_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("CHATRELAY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("CHATRELAY_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if enabled := os.Getenv("CHATRELAY_TRACING_ENABLED"); enabled != "" {
		c.Tracing.Enabled = enabled == "true"
	}
	if endpoint := os.Getenv("CHATRELAY_OTLP_ENDPOINT"); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
	}
}
