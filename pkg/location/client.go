package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "chatsync/internal/errors"
	"chatsync/internal/models"

	"github.com/sirupsen/logrus"
)

// Provider is the permission-gated location service. Both calls suspend the
// caller and are expected to be bounded by the passed context.
type Provider interface {
	RequestPermission(ctx context.Context) error
	GetCurrentPosition(ctx context.Context) (*models.Coordinates, error)
}

type permissionResponse struct {
	Granted bool `json:"granted"`
}

type positionResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HTTPProvider talks to a local device agent that owns the OS-level
// permission prompt and position fix.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func NewProvider(baseURL string, httpClient *http.Client) Provider {
	return NewProviderWithLogger(baseURL, httpClient, nil)
}

func NewProviderWithLogger(baseURL string, httpClient *http.Client, logger *logrus.Logger) Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &HTTPProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
		logger:  logger,
	}
}

// RequestPermission asks for foreground location permission. A declined
// prompt maps to PERMISSION_DENIED.
func (p *HTTPProvider) RequestPermission(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1/permissions/location", p.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to create permission request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeLocationUnavailable, "permission request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.ErrCodeLocationUnavailable, "location provider returned error status").
			WithContext("status", resp.StatusCode)
	}

	var result permissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeLocationUnavailable, "failed to decode permission response")
	}

	if !result.Granted {
		return apperrors.New(apperrors.ErrCodePermissionDenied, "foreground location permission declined")
	}

	return nil
}

// GetCurrentPosition fetches the device's current coordinates. Timeouts and
// provider failures map to LOCATION_UNAVAILABLE.
func (p *HTTPProvider) GetCurrentPosition(ctx context.Context) (*models.Coordinates, error) {
	endpoint := fmt.Sprintf("%s/v1/position", p.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to create position request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeLocationUnavailable, "position request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrCodeLocationUnavailable, "location provider returned error status").
			WithContext("status", resp.StatusCode)
	}

	var result positionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeLocationUnavailable, "failed to decode position response")
	}

	p.logger.Debug("Current position acquired")

	return &models.Coordinates{
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
	}, nil
}
