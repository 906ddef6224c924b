package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"chatrelay/internal/hub"
	"chatrelay/internal/models"
)

// PresenceStore persists the durable online flag that the polling API
// reads.
type PresenceStore interface {
	SetUserOnline(ctx context.Context, userID int64, online bool) error
}

// PresenceService records online transitions and fans them out to the
// user's reachable contacts. Presence events are fire and forget: a
// contact that is offline at fan-out time never sees the event replayed.
type PresenceService struct {
	store         PresenceStore
	registry      *hub.Registry
	relationships *RelationshipService
	logger        *logrus.Logger
}

// NewPresenceService creates a presence broadcaster.
func NewPresenceService(store PresenceStore, registry *hub.Registry, relationships *RelationshipService, logger *logrus.Logger) *PresenceService {
	return &PresenceService{
		store:         store,
		registry:      registry,
		relationships: relationships,
		logger:        logger,
	}
}

// Announce records userID's online state and pushes a status event to
// each non-blocked contact that is currently connected. A failed durable
// write is logged but does not suppress the fan-out; the live view is
// the registry, not the flag.
func (s *PresenceService) Announce(ctx context.Context, userID int64, online bool) {
	if err := s.store.SetUserOnline(ctx, userID, online); err != nil {
		s.logger.WithFields(logrus.Fields{
			LogFieldUserID: userID,
			LogFieldError:  err,
		}).Warn("Failed to persist online flag")
	}

	contacts := s.relationships.NonBlockedContacts(ctx, userID)
	if len(contacts) == 0 {
		return
	}

	event := models.UserStatus{
		Type:     models.FrameTypeUserStatus,
		UserID:   userID,
		IsOnline: online,
	}

	pushed := 0
	for _, contactID := range contacts {
		client, ok := s.registry.Lookup(contactID)
		if !ok {
			continue
		}
		if client.Push(event) {
			pushed++
		}
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldUserID: userID,
		"online":       online,
		"contacts":     len(contacts),
		"pushed":       pushed,
	}).Debug("Presence announced")
}
