package service

import (
	"context"
	"testing"
	"time"

	apperrors "chatsync/internal/errors"
	"chatsync/internal/models"
	"chatsync/pkg/delivery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*SendPipeline, *mockLocationProvider, *mockDeliveryClient, *ConversationStore) {
	t.Helper()
	provider := &mockLocationProvider{}
	deliveryClient := &mockDeliveryClient{}
	store := NewConversationStore()
	gate := NewLocationGate(provider, time.Second, time.Second, newTestLogger())
	pipeline := NewSendPipeline(gate, store, deliveryClient, "user-42", newTestLogger())
	return pipeline, provider, deliveryClient, store
}

func geoDataOf(t *testing.T, msg models.Message) models.GeoData {
	t.Helper()
	require.NotNil(t, msg.UserMetadata)
	geo, ok := msg.UserMetadata["geo_data"].(models.GeoData)
	require.True(t, ok, "message missing geo_data metadata")
	return geo
}

func TestSendStampsLocationAndDelivers(t *testing.T) {
	pipeline, provider, deliveryClient, store := newTestPipeline(t)

	provider.On("RequestPermission", mock.Anything).Return(nil)
	provider.On("GetCurrentPosition", mock.Anything).Return(&models.Coordinates{Latitude: 48.8584, Longitude: 2.2945}, nil)
	deliveryClient.On("SendMessage", mock.Anything, mock.Anything).Return(&delivery.SendMessageResponse{Confirmation: "ok"}, nil)

	err := pipeline.Send(context.Background(), []models.DraftMessage{{ID: "1", Text: "hi"}})
	require.NoError(t, err)

	messages := store.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "1", messages[0].ID)
	assert.Equal(t, "user-42", messages[0].SenderID)
	assert.False(t, messages[0].CreatedAt.IsZero())

	geo := geoDataOf(t, messages[0])
	assert.Equal(t, 48.8584, geo.Latitude)
	assert.Equal(t, 2.2945, geo.Longitude)

	deliveryClient.AssertNumberOfCalls(t, "SendMessage", 1)
	assert.False(t, pipeline.InFlight())
}

func TestSendPermissionDeniedUsesDefaultCoordinates(t *testing.T) {
	pipeline, provider, deliveryClient, store := newTestPipeline(t)

	provider.On("RequestPermission", mock.Anything).
		Return(apperrors.New(apperrors.ErrCodePermissionDenied, "declined"))
	deliveryClient.On("SendMessage", mock.Anything, mock.Anything).Return(&delivery.SendMessageResponse{Confirmation: "ok"}, nil)

	err := pipeline.Send(context.Background(), []models.DraftMessage{{ID: "1", Text: "hi"}})
	require.NoError(t, err)

	// Enrichment failure never aborts the send: the message is appended and
	// delivered with the default coordinate pair.
	messages := store.Messages()
	require.Len(t, messages, 1)
	geo := geoDataOf(t, messages[0])
	assert.Equal(t, float64(0), geo.Latitude)
	assert.Equal(t, float64(0), geo.Longitude)

	deliveryClient.AssertNumberOfCalls(t, "SendMessage", 1)
	provider.AssertNotCalled(t, "GetCurrentPosition", mock.Anything)
}

func TestSendDeliveryFailureKeepsOptimisticEntry(t *testing.T) {
	pipeline, provider, deliveryClient, store := newTestPipeline(t)

	provider.On("RequestPermission", mock.Anything).Return(nil)
	provider.On("GetCurrentPosition", mock.Anything).Return(&models.Coordinates{Latitude: 1, Longitude: 2}, nil)
	deliveryClient.On("SendMessage", mock.Anything, mock.Anything).
		Return(nil, apperrors.New(apperrors.ErrCodeInvalidAPIResponse, "delivery response missing confirmation"))

	err := pipeline.Send(context.Background(), []models.DraftMessage{{ID: "1", Text: "hi"}})

	// Delivery errors are swallowed; no rollback of the optimistic entry.
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.False(t, pipeline.InFlight())
}

func TestSendBatchTransmitsEveryDraft(t *testing.T) {
	pipeline, provider, deliveryClient, store := newTestPipeline(t)

	provider.On("RequestPermission", mock.Anything).Return(nil)
	provider.On("GetCurrentPosition", mock.Anything).Return(&models.Coordinates{Latitude: 1, Longitude: 2}, nil)

	var sentIDs []string
	deliveryClient.On("SendMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sentIDs = append(sentIDs, args.Get(1).(*models.Message).ID)
		}).
		Return(&delivery.SendMessageResponse{Confirmation: "ok"}, nil)

	drafts := []models.DraftMessage{
		{ID: "a", Text: "first"},
		{ID: "b", Text: "second"},
	}
	require.NoError(t, pipeline.Send(context.Background(), drafts))

	// Both drafts appear optimistically and both are transmitted, in order.
	messages := store.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "a", messages[0].ID)
	assert.Equal(t, "b", messages[1].ID)
	assert.Equal(t, []string{"a", "b"}, sentIDs)
}

func TestSendBatchPartialDeliveryFailure(t *testing.T) {
	pipeline, provider, deliveryClient, store := newTestPipeline(t)

	provider.On("RequestPermission", mock.Anything).Return(nil)
	provider.On("GetCurrentPosition", mock.Anything).Return(&models.Coordinates{Latitude: 1, Longitude: 2}, nil)

	deliveryClient.On("SendMessage", mock.Anything, mock.MatchedBy(func(m *models.Message) bool { return m.ID == "a" })).
		Return(nil, apperrors.New(apperrors.ErrCodeTransport, "connection reset"))
	deliveryClient.On("SendMessage", mock.Anything, mock.MatchedBy(func(m *models.Message) bool { return m.ID == "b" })).
		Return(&delivery.SendMessageResponse{Confirmation: "ok"}, nil)

	drafts := []models.DraftMessage{
		{ID: "a", Text: "first"},
		{ID: "b", Text: "second"},
	}
	require.NoError(t, pipeline.Send(context.Background(), drafts))

	// A failed head draft does not stop the rest of the batch.
	deliveryClient.AssertNumberOfCalls(t, "SendMessage", 2)
	assert.Equal(t, 2, store.Len())
}

func TestSendGeneratesMissingIDAndTimestamp(t *testing.T) {
	pipeline, provider, deliveryClient, store := newTestPipeline(t)

	provider.On("RequestPermission", mock.Anything).Return(nil)
	provider.On("GetCurrentPosition", mock.Anything).Return(&models.Coordinates{Latitude: 1, Longitude: 2}, nil)
	deliveryClient.On("SendMessage", mock.Anything, mock.Anything).Return(&delivery.SendMessageResponse{Confirmation: "ok"}, nil)

	require.NoError(t, pipeline.Send(context.Background(), []models.DraftMessage{{Text: "hi"}}))

	messages := store.Messages()
	require.Len(t, messages, 1)
	assert.NotEmpty(t, messages[0].ID)
	assert.False(t, messages[0].CreatedAt.IsZero())
}

func TestSendEmptyBatchIsNoop(t *testing.T) {
	pipeline, provider, deliveryClient, store := newTestPipeline(t)

	require.NoError(t, pipeline.Send(context.Background(), nil))

	assert.Equal(t, 0, store.Len())
	provider.AssertNotCalled(t, "RequestPermission", mock.Anything)
	deliveryClient.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestSendRejectsOverlappingInvocation(t *testing.T) {
	pipeline, provider, deliveryClient, _ := newTestPipeline(t)

	release := make(chan struct{})
	started := make(chan struct{})

	provider.On("RequestPermission", mock.Anything).Return(nil)
	provider.On("GetCurrentPosition", mock.Anything).Return(&models.Coordinates{Latitude: 1, Longitude: 2}, nil)
	deliveryClient.On("SendMessage", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&delivery.SendMessageResponse{Confirmation: "ok"}, nil)

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Send(context.Background(), []models.DraftMessage{{ID: "1", Text: "hi"}})
	}()

	<-started
	assert.True(t, pipeline.InFlight())

	err := pipeline.Send(context.Background(), []models.DraftMessage{{ID: "2", Text: "again"}})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSendInFlight, apperrors.GetCode(err))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, pipeline.InFlight())
}
