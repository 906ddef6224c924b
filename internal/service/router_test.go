package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/hub"
	"chatrelay/internal/models"
)

func newTestRouter(store *mockMessageStore, rels *mockRelationshipStore, registry *hub.Registry) *RouterService {
	logger := testLogger()
	relationships := NewRelationshipService(rels, models.RegistryConfig{}, logger)
	return NewRouterService(store, registry, relationships, logger)
}

func messageFrame(receiverID int64) *models.InboundFrame {
	return &models.InboundFrame{
		Type:            models.FrameTypeMessage,
		ReceiverID:      receiverID,
		MessageKind:     models.MessageKindText,
		ClientMessageID: "c1",
		Payload:         "hello",
	}
}

func TestRouteValidationFailure(t *testing.T) {
	store := &mockMessageStore{}
	rels := &mockRelationshipStore{}
	router := newTestRouter(store, rels, hub.NewRegistry(testLogger()))

	frame := messageFrame(0)
	receipt, err := router.Route(context.Background(), 1, frame)
	assert.Error(t, err)
	assert.Nil(t, receipt)

	frame = messageFrame(2)
	frame.Payload = ""
	receipt, err = router.Route(context.Background(), 1, frame)
	assert.Error(t, err)
	assert.Nil(t, receipt)

	store.AssertNotCalled(t, "SaveMessage", mock.Anything, mock.Anything)
}

func TestRouteBlockedSilentDrop(t *testing.T) {
	store := &mockMessageStore{}
	rels := &mockRelationshipStore{}
	rels.On("GetRelationshipStatus", mock.Anything, int64(2), int64(1)).
		Return(models.RelationshipBlocked, true, nil)

	router := newTestRouter(store, rels, hub.NewRegistry(testLogger()))

	receipt, err := router.Route(context.Background(), 1, messageFrame(2))
	require.NoError(t, err)
	assert.Nil(t, receipt)

	store.AssertNotCalled(t, "SaveMessage", mock.Anything, mock.Anything)
}

func TestRouteQueuedWhenReceiverOffline(t *testing.T) {
	store := &mockMessageStore{}
	store.On("SaveMessage", mock.Anything, mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Message).ID = 77
		}).Return(nil)

	rels := &mockRelationshipStore{}
	rels.On("GetRelationshipStatus", mock.Anything, int64(2), int64(1)).
		Return(models.RelationshipContact, true, nil)

	router := newTestRouter(store, rels, hub.NewRegistry(testLogger()))

	receipt, err := router.Route(context.Background(), 1, messageFrame(2))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, models.FrameTypeSavedReceipt, receipt.Type)
	assert.Equal(t, int64(77), receipt.ID)
	assert.Equal(t, "c1", receipt.ClientMessageID)
	assert.Equal(t, int64(2), receipt.ReceiverID)
	assert.Equal(t, models.MessageStatusQueued, receipt.Status)
}

func TestRouteDeliveredWhenReceiverOnline(t *testing.T) {
	store := &mockMessageStore{}
	var saved *models.Message
	store.On("SaveMessage", mock.Anything, mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Message)
			saved.ID = 78
		}).Return(nil)

	rels := &mockRelationshipStore{}
	rels.On("GetRelationshipStatus", mock.Anything, int64(2), int64(1)).
		Return(models.RelationshipStatus(""), false, nil)

	registry := hub.NewRegistry(testLogger())
	registry.Register(hub.NewClient(2, nil, 0, testLogger()))

	router := newTestRouter(store, rels, registry)

	receipt, err := router.Route(context.Background(), 1, messageFrame(2))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, models.MessageStatusDelivered, receipt.Status)
	require.NotNil(t, saved)
	assert.Equal(t, models.MessageStatusDelivered, saved.Status)
}

func TestRoutePersistenceFailure(t *testing.T) {
	store := &mockMessageStore{}
	store.On("SaveMessage", mock.Anything, mock.Anything).
		Return(errors.New("disk full"))

	rels := &mockRelationshipStore{}
	rels.On("GetRelationshipStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(models.RelationshipStatus(""), false, nil)

	router := newTestRouter(store, rels, hub.NewRegistry(testLogger()))

	// No durable identifier means no receipt.
	receipt, err := router.Route(context.Background(), 1, messageFrame(2))
	assert.Error(t, err)
	assert.Nil(t, receipt)
}

func TestRouteBlockLookupFailureFailsClosed(t *testing.T) {
	store := &mockMessageStore{}
	rels := &mockRelationshipStore{}
	rels.On("GetRelationshipStatus", mock.Anything, int64(2), int64(1)).
		Return(models.RelationshipStatus(""), false, errors.New("registry down"))

	router := newTestRouter(store, rels, hub.NewRegistry(testLogger()))

	receipt, err := router.Route(context.Background(), 1, messageFrame(2))
	require.NoError(t, err)
	assert.Nil(t, receipt)
	store.AssertNotCalled(t, "SaveMessage", mock.Anything, mock.Anything)
}
