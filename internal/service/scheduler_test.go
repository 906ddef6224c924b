package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"chatrelay/internal/metrics"
)

func TestRunCleanup(t *testing.T) {
	store := &mockCleanupStore{}
	store.On("DeleteExpiredSessions", mock.Anything).Return(int64(2), nil)
	store.On("CleanupOldMessages", 30).Return(nil)

	scheduler := NewCleanupScheduler(store, 30, time.Hour, testLogger())
	scheduler.runCleanup(context.Background())

	store.AssertExpectations(t)
}

func TestRunCleanupSkipsMessagesWithoutRetention(t *testing.T) {
	store := &mockCleanupStore{}
	store.On("DeleteExpiredSessions", mock.Anything).Return(int64(0), nil)

	scheduler := NewCleanupScheduler(store, 0, time.Hour, testLogger())
	scheduler.runCleanup(context.Background())

	store.AssertNotCalled(t, "CleanupOldMessages", mock.Anything)
}

func TestRunCleanupToleratesErrors(t *testing.T) {
	store := &mockCleanupStore{}
	store.On("DeleteExpiredSessions", mock.Anything).Return(int64(0), errors.New("locked"))
	store.On("CleanupOldMessages", 30).Return(errors.New("locked"))

	scheduler := NewCleanupScheduler(store, 30, time.Hour, testLogger())
	scheduler.runCleanup(context.Background())

	store.AssertExpectations(t)
}

func TestBacklogMonitorSample(t *testing.T) {
	store := &mockBacklogStore{}
	store.On("GetQueuedBacklogCount", mock.Anything, 5*time.Minute).Return(4, nil)

	monitor := NewBacklogMonitor(store, time.Minute, 5*time.Minute, testLogger())
	monitor.sample(context.Background())

	store.AssertExpectations(t)

	all := metrics.GetAllMetrics()
	gauges := all["gauges"].(map[string]*metrics.Metric)
	if gauge, ok := gauges["delivery_stale_queued"]; ok {
		if gauge.Value != 4 {
			t.Errorf("expected gauge value 4, got %v", gauge.Value)
		}
	} else {
		t.Error("expected delivery_stale_queued gauge to be set")
	}
}

func TestBacklogMonitorSampleError(t *testing.T) {
	store := &mockBacklogStore{}
	store.On("GetQueuedBacklogCount", mock.Anything, mock.Anything).
		Return(0, errors.New("locked"))

	monitor := NewBacklogMonitor(store, time.Minute, time.Minute, testLogger())
	monitor.sample(context.Background())
}
