package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	apperrors "chatsync/internal/errors"
	"chatsync/internal/metrics"
	"chatsync/internal/tracing"
	"chatsync/pkg/feed"
	feedtypes "chatsync/pkg/feed/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// SubscriptionManager owns live feed subscriptions. Each Subscribe call opens
// exactly one stream and returns an explicit handle; the caller is responsible
// for the symmetric Unsubscribe.
type SubscriptionManager struct {
	feedClient feed.Client
	projector  *Projector
	store      *ConversationStore
	logger     *logrus.Logger
}

func NewSubscriptionManager(feedClient feed.Client, projector *Projector, store *ConversationStore, logger *logrus.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		feedClient: feedClient,
		projector:  projector,
		store:      store,
		logger:     logger,
	}
}

// Subscribe opens one live subscription for the conversation and starts
// applying its snapshots to the store in emission order.
func (m *SubscriptionManager) Subscribe(ctx context.Context, conversationKey string) (*Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := m.feedClient.Subscribe(streamCtx, conversationKey)
	if err != nil {
		cancel()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSubscription, "failed to open feed subscription").
			WithContext("conversation", conversationKey)
	}

	sub := &Subscription{
		conversationKey: conversationKey,
		projector:       m.projector,
		store:           m.store,
		logger:          m.logger,
		errlog:          apperrors.WrapLogger(m.logger),
		stream:          stream,
		cancel:          cancel,
	}
	sub.active.Store(true)

	m.logger.WithField("conversation", conversationKey).Info("Feed subscription started")

	sub.wg.Add(1)
	go sub.run(streamCtx)

	return sub, nil
}

// Subscription is the handle for one live feed subscription. It carries an
// explicit active flag so a snapshot that arrives after teardown can never
// mutate the store.
type Subscription struct {
	conversationKey string
	projector       *Projector
	store           *ConversationStore
	logger          *logrus.Logger
	errlog          *apperrors.Logger
	stream          feed.Stream
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	active          atomic.Bool
	once            sync.Once
}

func (s *Subscription) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		snapshot, err := s.stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, feed.ErrStreamClosed) {
				return
			}

			// The stream failed terminally. The conversation view keeps
			// showing the last known list; there is no retry here.
			subErr := apperrors.Wrap(err, apperrors.ErrCodeSubscription, "feed stream failed")
			s.errlog.LogError(subErr, "Feed subscription failed, keeping last known message list", logrus.Fields{
				"conversation": s.conversationKey,
			})
			metrics.IncrementCounter("feed_subscription_errors_total", nil,
				"Terminal feed stream failures")
			return
		}

		s.apply(ctx, snapshot)
	}
}

// apply projects one snapshot and replaces the store's list with it. Each
// snapshot is authoritative and complete; nothing is merged across snapshots.
func (s *Subscription) apply(ctx context.Context, snapshot *feedtypes.Snapshot) {
	if !s.active.Load() {
		s.logger.WithField("conversation", s.conversationKey).
			Debug("Dropping feed snapshot delivered after unsubscribe")
		return
	}

	_, span := tracing.StartSpan(ctx, "subscription.apply",
		attribute.String("conversation", s.conversationKey),
		attribute.Int("records", len(snapshot.Records)),
	)
	defer span.End()

	messages := s.projector.ProjectAll(snapshot.Records)
	s.store.Replace(messages)

	metrics.IncrementCounter("feed_snapshots_applied_total", nil,
		"Feed snapshots applied to the conversation store")

	s.logger.WithFields(logrus.Fields{
		"conversation": s.conversationKey,
		"records":      len(messages),
	}).Debug("Feed snapshot applied")
}

// Unsubscribe tears the subscription down. Idempotent; once it returns, no
// further snapshot reaches the store.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.active.Store(false)
		s.cancel()
		if err := s.stream.Close(); err != nil {
			s.logger.WithError(err).Debug("Feed stream close failed during unsubscribe")
		}
		s.wg.Wait()
		s.logger.WithField("conversation", s.conversationKey).Info("Feed subscription stopped")
	})
}

// Active reports whether the subscription is still live.
func (s *Subscription) Active() bool {
	return s.active.Load()
}
