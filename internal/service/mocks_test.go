package service

import (
	"context"
	"sync"

	"chatsync/internal/models"
	"chatsync/pkg/delivery"
	"chatsync/pkg/feed"
	feedtypes "chatsync/pkg/feed/types"

	"github.com/stretchr/testify/mock"
)

type mockFeedClient struct {
	mock.Mock
}

func (m *mockFeedClient) Subscribe(ctx context.Context, conversationKey string) (feed.Stream, error) {
	args := m.Called(ctx, conversationKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(feed.Stream), args.Error(1)
}

// fakeStream is a channel-backed feed.Stream for driving the subscription
// loop from tests.
type fakeStream struct {
	snapshots chan *feedtypes.Snapshot
	errs      chan error
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		snapshots: make(chan *feedtypes.Snapshot, 16),
		errs:      make(chan error, 1),
		closed:    make(chan struct{}),
	}
}

func (s *fakeStream) Next(ctx context.Context) (*feedtypes.Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, feed.ErrStreamClosed
	case snapshot := <-s.snapshots:
		return snapshot, nil
	case err := <-s.errs:
		return nil, err
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type mockDeliveryClient struct {
	mock.Mock
}

func (m *mockDeliveryClient) SendMessage(ctx context.Context, msg *models.Message) (*delivery.SendMessageResponse, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.SendMessageResponse), args.Error(1)
}

type mockLocationProvider struct {
	mock.Mock
}

func (m *mockLocationProvider) RequestPermission(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockLocationProvider) GetCurrentPosition(ctx context.Context) (*models.Coordinates, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coordinates), args.Error(1)
}
