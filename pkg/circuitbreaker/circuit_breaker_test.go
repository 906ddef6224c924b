package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

func failing(ctx context.Context) error { return errUpstream }
func succeeding(ctx context.Context) error { return nil }

func TestClosedAllowsRequests(t *testing.T) {
	cb := New("test", 3, time.Minute)
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := New("test", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	// Further requests are rejected without reaching the function.
	err := cb.Execute(ctx, succeeding)
	require.Error(t, err)
	assert.True(t, IsCircuitBreakerError(err))
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := New("test", 1, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Execute(ctx, succeeding))
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New("test", 1, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestGetStats(t *testing.T) {
	cb := New("stats", 5, time.Minute)
	ctx := context.Background()

	_ = cb.Execute(ctx, succeeding)
	_ = cb.Execute(ctx, failing)

	stats := cb.GetStats()
	assert.Equal(t, "stats", stats.Name)
	assert.Equal(t, uint32(2), stats.Requests)
	assert.Equal(t, uint32(1), stats.Successes)
	assert.Equal(t, uint32(1), stats.Failures)
	assert.False(t, stats.LastFailureTime.IsZero())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}
