package constants

// Server defaults
const (
	DefaultServerPort          = 8082
	DefaultReadTimeoutSec      = 15
	DefaultWriteTimeoutSec     = 15
	DefaultIdleTimeoutSec      = 60
	DefaultGracefulShutdownSec = 30
	ServerErrorChannelSize     = 1
)

// Conversation defaults
const (
	DefaultConversationKeyPrefix = "chatroom_"
)

// Feed defaults
const (
	DefaultFeedHandshakeTimeoutSec = 10
)

// Delivery defaults
const (
	DefaultDeliveryTimeoutSec = 30
)

// Location defaults. Both steps of the gate are bounded so a send can never
// hang on the provider.
const (
	DefaultPermissionTimeoutSec = 5
	DefaultPositionTimeoutSec   = 10
)

// Retry defaults for the feed reconnect backoff
const (
	DefaultInitialBackoffMs = 1000
	DefaultMaxBackoffMs     = 30000
	DefaultMaxRetryAttempts = 5
)
