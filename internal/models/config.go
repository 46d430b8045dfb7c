package models

// ConfigError indicates an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

// ConversationConfig identifies the active conversation. The conversation key
// is derived from the user id: KeyPrefix + UserID.
type ConversationConfig struct {
	UserID    string `json:"user_id"`
	KeyPrefix string `json:"key_prefix"`
}

// Key returns the feed conversation key for the configured user.
func (c ConversationConfig) Key() string {
	return c.KeyPrefix + c.UserID
}

// FeedConfig configures the live feed source subscription.
type FeedConfig struct {
	WSURL               string `json:"ws_url"`
	AuthToken           string `json:"-"`
	HandshakeTimeoutSec int    `json:"handshake_timeout_sec"`
	ReconnectEnabled    bool   `json:"reconnect_enabled"`
}

// DeliveryConfig configures the outgoing message delivery channel.
type DeliveryConfig struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"-"`
	TimeoutSec int    `json:"timeout_sec"`
}

// LocationConfig configures the location provider agent.
type LocationConfig struct {
	BaseURL              string `json:"base_url"`
	PermissionTimeoutSec int    `json:"permission_timeout_sec"`
	PositionTimeoutSec   int    `json:"position_timeout_sec"`
}

// ServerConfig configures the presentation-facing HTTP server.
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"read_timeout_sec"`
	WriteTimeoutSec int `json:"write_timeout_sec"`
	IdleTimeoutSec  int `json:"idle_timeout_sec"`
}

// RetryConfig drives the feed client's reconnect backoff. The sync core itself
// never retries; reconnection belongs to the feed source adapter.
type RetryConfig struct {
	InitialBackoffMs int `json:"initial_backoff_ms"`
	MaxBackoffMs     int `json:"max_backoff_ms"`
	MaxAttempts      int `json:"max_attempts"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

// Config is the root configuration document.
type Config struct {
	LogLevel     string             `json:"log_level"`
	Conversation ConversationConfig `json:"conversation"`
	Feed         FeedConfig         `json:"feed"`
	Delivery     DeliveryConfig     `json:"delivery"`
	Location     LocationConfig     `json:"location"`
	Server       ServerConfig       `json:"server"`
	Retry        RetryConfig        `json:"retry"`
	Tracing      TracingConfig      `json:"tracing"`
}
