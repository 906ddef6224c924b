package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"chatrelay/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockRelationshipStore struct {
	mock.Mock
}

func (m *mockRelationshipStore) GetRelationshipStatus(ctx context.Context, ownerID, otherID int64) (models.RelationshipStatus, bool, error) {
	args := m.Called(ctx, ownerID, otherID)
	return args.Get(0).(models.RelationshipStatus), args.Bool(1), args.Error(2)
}

func (m *mockRelationshipStore) GetNonBlockedContactIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type mockPresenceStore struct {
	mock.Mock
}

func (m *mockPresenceStore) SetUserOnline(ctx context.Context, userID int64, online bool) error {
	args := m.Called(ctx, userID, online)
	return args.Error(0)
}

type mockDeliveryStore struct {
	mock.Mock
}

func (m *mockDeliveryStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockDeliveryStore) AdvanceMessageStatus(ctx context.Context, id, receiverID int64, status models.MessageStatus) (bool, error) {
	args := m.Called(ctx, id, receiverID, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeliveryStore) FetchAndPromoteQueued(ctx context.Context, receiverID int64) ([]models.OfflineMessage, error) {
	args := m.Called(ctx, receiverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OfflineMessage), args.Error(1)
}

func (m *mockDeliveryStore) PromoteAllQueued(ctx context.Context, receiverID int64) (int64, error) {
	args := m.Called(ctx, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockDeliveryStore) DeleteMessageFrom(ctx context.Context, id, requesterID int64) (bool, error) {
	args := m.Called(ctx, id, requesterID)
	return args.Bool(0), args.Error(1)
}

type mockCleanupStore struct {
	mock.Mock
}

func (m *mockCleanupStore) CleanupOldMessages(retentionDays int) error {
	args := m.Called(retentionDays)
	return args.Error(0)
}

func (m *mockCleanupStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockBacklogStore struct {
	mock.Mock
}

func (m *mockBacklogStore) GetQueuedBacklogCount(ctx context.Context, threshold time.Duration) (int, error) {
	args := m.Called(ctx, threshold)
	return args.Int(0), args.Error(1)
}
