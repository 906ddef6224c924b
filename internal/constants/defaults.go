package constants

// Default server configuration values
const (
	DefaultServerPort            = 8082
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default websocket configuration values
const (
	DefaultSocketReadLimitBytes = 1 << 20 // 1 MiB per frame
	DefaultPushBufferSize       = 64      // outbound frames buffered per connection
	DefaultRegisterTimeoutSec   = 30      // time allowed for the first register frame
)

// Default database configuration values
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultRetentionDays         = 30
	DefaultCleanupIntervalHours  = 24
)

// Default backlog monitor values
const (
	DefaultBacklogCheckIntervalSec  = 60
	DefaultBacklogStaleThresholdSec = 300
)

// Relationship registry circuit breaker defaults
const (
	DefaultRegistryBreakerMaxFailures = 5
	DefaultRegistryBreakerTimeoutSec  = 30
)

// Validation limits
const (
	MaxClientMessageIDLength = 64
	MaxPayloadBytes          = 256 * 1024
	MaxTokenLength           = 128
)

// Privacy settings
const (
	DefaultTokenRevealLength = 4
)

// Encryption settings
const (
	EncryptionSalt = "chatrelay-payload-v1"
)
