package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"chatrelay/internal/errors"
	"chatrelay/internal/hub"
	"chatrelay/internal/metrics"
	"chatrelay/internal/models"
	"chatrelay/internal/validation"
)

// DeliveryStore is the persistence surface for the delivery lifecycle.
type DeliveryStore interface {
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	AdvanceMessageStatus(ctx context.Context, id, receiverID int64, status models.MessageStatus) (bool, error)
	FetchAndPromoteQueued(ctx context.Context, receiverID int64) ([]models.OfflineMessage, error)
	PromoteAllQueued(ctx context.Context, receiverID int64) (int64, error)
	DeleteMessageFrom(ctx context.Context, id, requesterID int64) (bool, error)
}

// DeliveryService drives messages through the queued, delivered, read
// lifecycle and handles deletion. Status moves forward only; a stale
// delivered ack after a read ack is a no-op.
type DeliveryService struct {
	store    DeliveryStore
	registry *hub.Registry
	logger   *logrus.Logger
}

// NewDeliveryService creates a delivery lifecycle service.
func NewDeliveryService(store DeliveryStore, registry *hub.Registry, logger *logrus.Logger) *DeliveryService {
	return &DeliveryService{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// Acknowledge advances messageID to status on behalf of receiverID and,
// when the status actually moved, notifies the connected sender. Acks for
// messages the caller does not own, unknown ids, and backward transitions
// are all no-ops.
func (s *DeliveryService) Acknowledge(ctx context.Context, receiverID, messageID int64, status models.MessageStatus) error {
	if err := validation.ValidateMessageID(messageID); err != nil {
		return err
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return errors.NewDatabaseError("message lookup", err)
	}
	if msg == nil || msg.ReceiverID != receiverID {
		// Indistinguishable on purpose: acking someone else's message
		// behaves exactly like acking a message that never existed.
		return nil
	}

	advanced, err := s.store.AdvanceMessageStatus(ctx, messageID, receiverID, status)
	if err != nil {
		return errors.NewDatabaseError("status advance", err)
	}
	if !advanced {
		s.logger.WithFields(logrus.Fields{
			LogFieldMessageID: messageID,
			LogFieldStatus:    status,
		}).Debug("Stale acknowledgement ignored")
		return nil
	}

	metrics.IncrementCounter("delivery_status_advances", map[string]string{
		"status": string(status),
	})

	if sender, ok := s.registry.Lookup(msg.SenderID); ok {
		sender.Push(models.StatusAck{
			Type:       models.FrameTypeStatusAck,
			ID:         messageID,
			ReceiverID: receiverID,
			Status:     status,
		})
	}

	return nil
}

// FetchAndPromote returns all queued messages for userID in creation
// order and atomically promotes them to delivered. Handing the batch to
// the client process counts as delivery.
func (s *DeliveryService) FetchAndPromote(ctx context.Context, userID int64) ([]models.OfflineMessage, error) {
	msgs, err := s.store.FetchAndPromoteQueued(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("offline fetch", err)
	}

	if len(msgs) > 0 {
		metrics.AddToCounter("delivery_offline_fetched", float64(len(msgs)), nil)
		s.logger.WithFields(logrus.Fields{
			LogFieldUserID: userID,
			LogFieldCount:  len(msgs),
		}).Info("Offline messages fetched and promoted")
	}

	return msgs, nil
}

// MarkAllDelivered promotes every queued message for userID to delivered
// without returning content. Returns the number promoted.
func (s *DeliveryService) MarkAllDelivered(ctx context.Context, userID int64) (int64, error) {
	promoted, err := s.store.PromoteAllQueued(ctx, userID)
	if err != nil {
		return 0, errors.NewDatabaseError("bulk promote", err)
	}

	if promoted > 0 {
		metrics.AddToCounter("delivery_bulk_promoted", float64(promoted), nil)
	}
	return promoted, nil
}

// Delete removes messageID if requesterID is its original sender. Hard
// removal regardless of current delivery status. Returns false when the
// message does not exist or the requester is not the sender.
func (s *DeliveryService) Delete(ctx context.Context, requesterID, messageID int64) (bool, error) {
	if err := validation.ValidateMessageID(messageID); err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteMessageFrom(ctx, messageID, requesterID)
	if err != nil {
		return false, errors.NewDatabaseError("message delete", err)
	}

	if deleted {
		metrics.IncrementCounter("delivery_messages_deleted", nil)
		s.logger.WithFields(logrus.Fields{
			LogFieldUserID:    requesterID,
			LogFieldMessageID: messageID,
		}).Info("Message deleted by sender")
	}
	return deleted, nil
}
