package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"chatrelay/internal/metrics"
)

// BacklogStore is the persistence surface for backlog inspection.
type BacklogStore interface {
	GetQueuedBacklogCount(ctx context.Context, threshold time.Duration) (int, error)
}

// BacklogMonitor samples how many messages have sat queued longer than a
// threshold and exposes the figure as a gauge. A growing backlog usually
// means receivers are not reconnecting or the polling fallback is broken.
type BacklogMonitor struct {
	store     BacklogStore
	interval  time.Duration
	threshold time.Duration
	logger    *logrus.Logger
}

// NewBacklogMonitor creates a queued-backlog monitor.
func NewBacklogMonitor(store BacklogStore, interval, threshold time.Duration, logger *logrus.Logger) *BacklogMonitor {
	return &BacklogMonitor{
		store:     store,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Start runs the monitor until ctx is cancelled.
func (m *BacklogMonitor) Start(ctx context.Context) {
	m.logger.WithFields(logrus.Fields{
		"interval":  m.interval.String(),
		"threshold": m.threshold.String(),
	}).Info("Backlog monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Backlog monitor stopped")
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *BacklogMonitor) sample(ctx context.Context) {
	count, err := m.store.GetQueuedBacklogCount(ctx, m.threshold)
	if err != nil {
		m.logger.WithError(err).Warn("Backlog sample failed")
		return
	}

	metrics.SetGauge("delivery_stale_queued", float64(count), nil)
	if count > 0 {
		m.logger.WithField(LogFieldCount, count).Warn("Messages queued past staleness threshold")
	}
}
