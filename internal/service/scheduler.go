package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"chatrelay/internal/metrics"
)

// CleanupStore is the persistence surface for retention sweeps.
type CleanupStore interface {
	CleanupOldMessages(retentionDays int) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// CleanupScheduler periodically removes expired sessions and old
// delivered or read messages. Queued messages are never swept; they wait
// for the receiver however long it takes.
type CleanupScheduler struct {
	store         CleanupStore
	retentionDays int
	interval      time.Duration
	logger        *logrus.Logger
}

// NewCleanupScheduler creates a retention scheduler.
func NewCleanupScheduler(store CleanupStore, retentionDays int, interval time.Duration, logger *logrus.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		store:         store,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
	}
}

// Start runs the scheduler until ctx is cancelled. One sweep runs
// immediately on start.
func (s *CleanupScheduler) Start(ctx context.Context) {
	s.logger.WithFields(logrus.Fields{
		"retention_days": s.retentionDays,
		"interval":       s.interval.String(),
	}).Info("Cleanup scheduler started")

	s.runCleanup(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *CleanupScheduler) runCleanup(ctx context.Context) {
	expired, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to delete expired sessions")
	} else if expired > 0 {
		metrics.AddToCounter("cleanup_sessions_expired", float64(expired), nil)
		s.logger.WithField(LogFieldCount, expired).Info("Expired sessions deleted")
	}

	if s.retentionDays <= 0 {
		return
	}
	if err := s.store.CleanupOldMessages(s.retentionDays); err != nil {
		s.logger.WithError(err).Error("Failed to clean up old messages")
		return
	}
	metrics.IncrementCounter("cleanup_message_sweeps", nil)
}
