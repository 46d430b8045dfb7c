package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "chatsync/internal/errors"
	"chatsync/internal/models"

	"github.com/sirupsen/logrus"
)

// Client persists an outgoing message on the delivery channel.
type Client interface {
	SendMessage(ctx context.Context, msg *models.Message) (*SendMessageResponse, error)
}

// SendMessageRequest is the delivery channel wire payload.
type SendMessageRequest struct {
	Text         string              `json:"text"`
	ID           string              `json:"id"`
	UserMetadata models.UserMetadata `json:"user_metadata,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// SendMessageResponse carries the server's confirmation payload.
type SendMessageResponse struct {
	Confirmation string
}

type sendMessageEnvelope struct {
	Data struct {
		Message string `json:"message"`
	} `json:"data"`
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) Client {
	return NewClientWithLogger(baseURL, apiKey, httpClient, nil)
}

func NewClientWithLogger(baseURL, apiKey string, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpClient,
		logger:  logger,
	}
}

// SendMessage posts a single message. A response without the confirmation
// payload is an application-level error, distinct from transport failure.
func (c *HTTPClient) SendMessage(ctx context.Context, msg *models.Message) (*SendMessageResponse, error) {
	payload := SendMessageRequest{
		Text:         msg.Text,
		ID:           msg.ID,
		UserMetadata: msg.UserMetadata,
		CreatedAt:    msg.CreatedAt,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to marshal send request")
	}

	endpoint := fmt.Sprintf("%s/api/v1/chat/messages", c.baseURL)

	c.logger.WithFields(logrus.Fields{
		"endpoint":   endpoint,
		"message_id": msg.ID,
	}).Debug("Sending message to delivery channel")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to create send request")
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeTransport, "delivery request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ErrCodeTransport, "delivery channel returned error status").
			WithContext("status", resp.StatusCode).
			WithContext("body", string(bodyBytes))
	}

	var envelope sendMessageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidAPIResponse, "failed to decode delivery response").
			WithContext("message_id", msg.ID)
	}

	if envelope.Data.Message == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidAPIResponse, "delivery response missing confirmation").
			WithContext("message_id", msg.ID)
	}

	return &SendMessageResponse{Confirmation: envelope.Data.Message}, nil
}
