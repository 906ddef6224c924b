package models

// Config holds the application configuration
type Config struct {
	Server        ServerConfig   `json:"server"`
	Socket        SocketConfig   `json:"socket"`
	Database      DatabaseConfig `json:"database"`
	Registry      RegistryConfig `json:"relationshipRegistry"`
	Monitor       MonitorConfig  `json:"backlogMonitor"`
	Retry         RetryConfig    `json:"retry"`
	Tracing       TracingConfig  `json:"tracing"`
	LogLevel      string         `json:"log_level"`
	RetentionDays int            `json:"retentionDays"`
}

// ServerConfig holds HTTP server related configurations
type ServerConfig struct {
	Port                 int `json:"port"`
	ReadTimeoutSec       int `json:"readTimeoutSec"`
	WriteTimeoutSec      int `json:"writeTimeoutSec"`
	IdleTimeoutSec       int `json:"idleTimeoutSec"`
	CleanupIntervalHours int `json:"cleanupIntervalHours"`
}

// SocketConfig holds websocket related configurations
type SocketConfig struct {
	ReadLimitBytes     int64 `json:"readLimitBytes"`
	PushBufferSize     int   `json:"pushBufferSize"`
	RegisterTimeoutSec int   `json:"registerTimeoutSec"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// RegistryConfig holds circuit breaker settings for relationship
// registry lookups
type RegistryConfig struct {
	BreakerMaxFailures int `json:"breakerMaxFailures"`
	BreakerTimeoutSec  int `json:"breakerTimeoutSec"`
}

// MonitorConfig holds queued-backlog monitor configurations
type MonitorConfig struct {
	CheckIntervalSec  int `json:"checkIntervalSec"`
	StaleThresholdSec int `json:"staleThresholdSec"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry related configurations
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
