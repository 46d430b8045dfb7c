package service

import (
	"context"
	"time"

	apperrors "chatsync/internal/errors"
	"chatsync/internal/models"
	"chatsync/internal/privacy"
	"chatsync/pkg/location"

	"github.com/sirupsen/logrus"
)

// LocationGate acquires a best-effort coordinate pair for outgoing message
// enrichment. Both steps are time-bounded and every failure degrades to the
// default coordinates; the gate never blocks a send and never returns an
// error. Location is a signal for the automated counterpart, not a
// precondition for chat.
type LocationGate struct {
	provider          location.Provider
	permissionTimeout time.Duration
	positionTimeout   time.Duration
	logger            *logrus.Logger
	errlog            *apperrors.Logger
}

func NewLocationGate(provider location.Provider, permissionTimeout, positionTimeout time.Duration, logger *logrus.Logger) *LocationGate {
	return &LocationGate{
		provider:          provider,
		permissionTimeout: permissionTimeout,
		positionTimeout:   positionTimeout,
		logger:            logger,
		errlog:            apperrors.WrapLogger(logger),
	}
}

// Acquire requests permission then fetches the current position. On any
// failure it logs the cause and returns (0, 0).
func (g *LocationGate) Acquire(ctx context.Context) models.Coordinates {
	permCtx, cancelPerm := context.WithTimeout(ctx, g.permissionTimeout)
	defer cancelPerm()

	if err := g.provider.RequestPermission(permCtx); err != nil {
		g.errlog.LogWarn(err, "Location permission not granted, using default coordinates")
		return models.DefaultCoordinates
	}

	posCtx, cancelPos := context.WithTimeout(ctx, g.positionTimeout)
	defer cancelPos()

	coords, err := g.provider.GetCurrentPosition(posCtx)
	if err != nil {
		g.errlog.LogWarn(err, "Position fetch failed, using default coordinates")
		return models.DefaultCoordinates
	}

	g.logger.WithField("position", privacy.CoarseCoordinates(coords.Latitude, coords.Longitude)).
		Debug("Location acquired")

	return *coords
}
