package service

import (
	"context"
	"sync/atomic"
	"time"

	apperrors "chatsync/internal/errors"
	"chatsync/internal/metrics"
	"chatsync/internal/models"
	"chatsync/internal/privacy"
	"chatsync/internal/tracing"
	"chatsync/pkg/delivery"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// SendPipeline takes user-submitted drafts through location enrichment, the
// optimistic append, and delivery. Delivery failures are logged and swallowed:
// the optimistic entry stays visible and the feed snapshot eventually settles
// the list either way.
type SendPipeline struct {
	gate           *LocationGate
	store          *ConversationStore
	deliveryClient delivery.Client
	userID         string
	logger         *logrus.Logger
	errlog         *apperrors.Logger
	inFlight       atomic.Bool
}

func NewSendPipeline(gate *LocationGate, store *ConversationStore, deliveryClient delivery.Client, userID string, logger *logrus.Logger) *SendPipeline {
	return &SendPipeline{
		gate:           gate,
		store:          store,
		deliveryClient: deliveryClient,
		userID:         userID,
		logger:         logger,
		errlog:         apperrors.WrapLogger(logger),
	}
}

// Send processes one submit event. Overlapping invocations are rejected with
// SEND_IN_FLIGHT; that busy error is the only failure Send surfaces. Every
// draft in the batch is stamped with geolocation metadata, appended
// optimistically, and transmitted with one delivery call per message.
func (p *SendPipeline) Send(ctx context.Context, drafts []models.DraftMessage) error {
	if len(drafts) == 0 {
		return nil
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		return apperrors.New(apperrors.ErrCodeSendInFlight, "a send is already in flight")
	}
	defer p.inFlight.Store(false)

	ctx, span := tracing.StartSpan(ctx, "pipeline.send",
		attribute.Int("drafts", len(drafts)),
	)
	defer span.End()

	started := time.Now()
	defer func() {
		metrics.RecordTimer("send_duration", time.Since(started), nil)
	}()

	coords := p.gate.Acquire(ctx)
	stamped := p.stamp(drafts, coords)

	p.store.AppendOptimistic(stamped)

	for i := range stamped {
		msg := &stamped[i]

		if _, err := p.deliveryClient.SendMessage(ctx, msg); err != nil {
			tracing.RecordError(ctx, err)
			metrics.IncrementCounter("send_failures_total",
				map[string]string{"code": string(apperrors.GetCode(err))},
				"Delivery calls that failed")
			p.errlog.LogError(err, "Delivery failed, optimistic message remains visible", logrus.Fields{
				"message_id": privacy.MaskMessageID(msg.ID),
			})
			continue
		}

		metrics.IncrementCounter("messages_sent_total", nil,
			"Messages confirmed by the delivery channel")
		p.logger.WithField("message_id", privacy.MaskMessageID(msg.ID)).
			Debug("Message delivered")
	}

	return nil
}

// stamp turns drafts into fully formed messages: generated id and timestamp
// where missing, the sender's identity, and the geo_data metadata from the
// acquired (or defaulted) coordinates.
func (p *SendPipeline) stamp(drafts []models.DraftMessage, coords models.Coordinates) []models.Message {
	stamped := make([]models.Message, len(drafts))
	for i, draft := range drafts {
		id := draft.ID
		if id == "" {
			id = uuid.NewString()
		}

		createdAt := draft.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		stamped[i] = models.Message{
			ID:        id,
			CreatedAt: createdAt,
			Text:      draft.Text,
			SenderID:  p.userID,
			UserMetadata: models.UserMetadata{
				"geo_data": models.GeoData{
					Latitude:  coords.Latitude,
					Longitude: coords.Longitude,
				},
			},
		}
	}
	return stamped
}

// InFlight reports whether a send is currently in progress.
func (p *SendPipeline) InFlight() bool {
	return p.inFlight.Load()
}
