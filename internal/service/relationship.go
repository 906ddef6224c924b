package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"chatrelay/internal/constants"
	"chatrelay/internal/models"
	"chatrelay/pkg/circuitbreaker"
)

// RelationshipStore is the persistence surface the relationship service
// needs.
type RelationshipStore interface {
	GetRelationshipStatus(ctx context.Context, ownerID, otherID int64) (models.RelationshipStatus, bool, error)
	GetNonBlockedContactIDs(ctx context.Context, ownerID int64) ([]int64, error)
}

// RelationshipService answers block and contact queries. Lookups run
// behind a circuit breaker; when the breaker is open callers get the
// documented degraded answers instead of waiting on a failing store.
type RelationshipService struct {
	store   RelationshipStore
	breaker *circuitbreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewRelationshipService creates a relationship service with its lookup
// breaker, tuned by cfg where set.
func NewRelationshipService(store RelationshipStore, cfg models.RegistryConfig, logger *logrus.Logger) *RelationshipService {
	if cfg.BreakerMaxFailures <= 0 {
		cfg.BreakerMaxFailures = constants.DefaultRegistryBreakerMaxFailures
	}
	if cfg.BreakerTimeoutSec <= 0 {
		cfg.BreakerTimeoutSec = constants.DefaultRegistryBreakerTimeoutSec
	}
	breaker := circuitbreaker.NewWithLogger(
		"relationship-registry",
		uint32(cfg.BreakerMaxFailures),
		time.Duration(cfg.BreakerTimeoutSec)*time.Second,
		logger,
	)
	return &RelationshipService{
		store:   store,
		breaker: breaker,
		logger:  logger,
	}
}

// IsBlocked reports whether receiverID has blocked senderID. When the
// lookup fails or the breaker is open it fails closed: the send is
// treated as blocked rather than risking delivery past a block.
func (s *RelationshipService) IsBlocked(ctx context.Context, senderID, receiverID int64) bool {
	var status models.RelationshipStatus
	var found bool

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		status, found, err = s.store.GetRelationshipStatus(ctx, receiverID, senderID)
		return err
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			LogFieldSenderID:   senderID,
			LogFieldReceiverID: receiverID,
			LogFieldError:      err,
		}).Warn("Block lookup failed, treating send as blocked")
		return true
	}

	return found && status == models.RelationshipBlocked
}

// NonBlockedContacts returns the contacts of ownerID that have not
// blocked them. On lookup failure it returns an empty set so presence
// fan-out degrades to silence instead of leaking to blocked contacts.
func (s *RelationshipService) NonBlockedContacts(ctx context.Context, ownerID int64) []int64 {
	var contacts []int64

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		contacts, err = s.store.GetNonBlockedContactIDs(ctx, ownerID)
		return err
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			LogFieldUserID: ownerID,
			LogFieldError:  err,
		}).Warn("Contact lookup failed, skipping presence fan-out")
		return nil
	}

	return contacts
}

// BreakerStats exposes breaker state for the metrics endpoint.
func (s *RelationshipService) BreakerStats() circuitbreaker.Stats {
	return s.breaker.GetStats()
}
