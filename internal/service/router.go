package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"chatrelay/internal/errors"
	"chatrelay/internal/hub"
	"chatrelay/internal/metrics"
	"chatrelay/internal/models"
	"chatrelay/internal/privacy"
	"chatrelay/internal/validation"
)

// MessageStore is the persistence surface the router needs.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
}

// RouterService is the ingress pipeline for a send: validate, consult the
// block guard, persist, emit the receipt, and attempt live delivery.
type RouterService struct {
	store         MessageStore
	registry      *hub.Registry
	relationships *RelationshipService
	logger        *logrus.Logger
}

// NewRouterService creates a message router.
func NewRouterService(store MessageStore, registry *hub.Registry, relationships *RelationshipService, logger *logrus.Logger) *RouterService {
	return &RouterService{
		store:         store,
		registry:      registry,
		relationships: relationships,
		logger:        logger,
	}
}

// Route processes one send from senderID. On success it returns the
// receipt for the sender. A blocked send returns (nil, nil): nothing is
// persisted and the sender receives nothing, so the block stays
// undiscoverable. A nil receipt with a non-nil error means the send was
// rejected and must not be acknowledged.
func (s *RouterService) Route(ctx context.Context, senderID int64, frame *models.InboundFrame) (*models.SavedReceipt, error) {
	if err := validation.ValidateMessageFrame(frame); err != nil {
		metrics.IncrementCounter("router_validation_failures", nil)
		return nil, err
	}

	if s.relationships.IsBlocked(ctx, senderID, frame.ReceiverID) {
		metrics.IncrementCounter("router_blocked_drops", nil)
		s.logger.WithError(errors.NewBlockedRecipientError(senderID, frame.ReceiverID)).
			Debug("Send suppressed by block relationship")
		return nil, nil
	}

	// Best-effort knowledge at persist time. A receiver that disconnects
	// a moment later still shows delivered until an offline fetch or ack
	// corrects it.
	receiverClient, receiverOnline := s.registry.Lookup(frame.ReceiverID)
	status := models.MessageStatusQueued
	if receiverOnline {
		status = models.MessageStatusDelivered
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: frame.ReceiverID,
		Kind:       frame.MessageKind,
		Payload:    frame.Payload,
		Status:     status,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		metrics.IncrementCounter("router_persistence_failures", nil)
		return nil, errors.NewPersistenceError("message", err)
	}

	receipt := &models.SavedReceipt{
		Type:            models.FrameTypeSavedReceipt,
		ID:              msg.ID,
		ClientMessageID: frame.ClientMessageID,
		ReceiverID:      frame.ReceiverID,
		Status:          status,
	}

	if receiverOnline {
		push := models.MessagePush{
			Type:        models.FrameTypeMessage,
			ID:          msg.ID,
			From:        senderID,
			MessageKind: frame.MessageKind,
			Payload:     frame.Payload,
		}
		if !receiverClient.Push(push) {
			// Non-fatal: the message is durable and the receiver's next
			// offline fetch reconciles it.
			metrics.IncrementCounter("router_push_failures", nil)
			errors.LogWarn(s.logger,
				errors.NewDeliveryPushError(frame.ReceiverID, nil),
				"Live delivery push dropped",
				logrus.Fields{LogFieldMessageID: msg.ID})
		}
	}

	metrics.IncrementCounter("router_messages_routed", map[string]string{
		"status": string(status),
	})
	s.logger.WithFields(logrus.Fields{
		LogFieldSenderID:   senderID,
		LogFieldReceiverID: frame.ReceiverID,
		LogFieldMessageID:  msg.ID,
		LogFieldStatus:     status,
		"payload":          privacy.PayloadPreview(frame.Payload),
	}).Info("Message routed")

	return receipt, nil
}
