package config

import (
	"encoding/json"
	"os"

	"chatsync/internal/constants"
	"chatsync/internal/models"
)

var (
	ErrMissingFeedURL     = models.ConfigError{Message: "missing feed websocket URL"}
	ErrMissingDeliveryURL = models.ConfigError{Message: "missing delivery channel base URL"}
	ErrMissingLocationURL = models.ConfigError{Message: "missing location provider base URL"}
	ErrMissingUserID      = models.ConfigError{Message: "missing conversation user id"}
)

// LoadConfig reads, validates and defaults the configuration file, then
// applies environment overrides.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Feed.WSURL == "" {
		return ErrMissingFeedURL
	}
	if c.Delivery.BaseURL == "" {
		return ErrMissingDeliveryURL
	}
	if c.Location.BaseURL == "" {
		return ErrMissingLocationURL
	}
	if c.Conversation.UserID == "" {
		return ErrMissingUserID
	}

	if c.Conversation.KeyPrefix == "" {
		c.Conversation.KeyPrefix = constants.DefaultConversationKeyPrefix
	}
	if c.Feed.HandshakeTimeoutSec <= 0 {
		c.Feed.HandshakeTimeoutSec = constants.DefaultFeedHandshakeTimeoutSec
	}
	if c.Delivery.TimeoutSec <= 0 {
		c.Delivery.TimeoutSec = constants.DefaultDeliveryTimeoutSec
	}
	if c.Location.PermissionTimeoutSec <= 0 {
		c.Location.PermissionTimeoutSec = constants.DefaultPermissionTimeoutSec
	}
	if c.Location.PositionTimeoutSec <= 0 {
		c.Location.PositionTimeoutSec = constants.DefaultPositionTimeoutSec
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultIdleTimeoutSec
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultInitialBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxRetryAttempts
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("CHATSYNC_FEED_WS_URL"); url != "" {
		c.Feed.WSURL = url
	}
	if url := os.Getenv("CHATSYNC_DELIVERY_URL"); url != "" {
		c.Delivery.BaseURL = url
	}
	if url := os.Getenv("CHATSYNC_LOCATION_URL"); url != "" {
		c.Location.BaseURL = url
	}
	if uid := os.Getenv("CHATSYNC_USER_ID"); uid != "" {
		c.Conversation.UserID = uid
	}

	// Secrets are environment-only, never read from the config file.
	if token := os.Getenv("CHATSYNC_FEED_AUTH_TOKEN"); token != "" {
		c.Feed.AuthToken = token
	}
	if key := os.Getenv("CHATSYNC_DELIVERY_API_KEY"); key != "" {
		c.Delivery.APIKey = key
	}
}
