package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// BackoffConfig configures exponential backoff behavior
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
	Jitter       bool
}

// DefaultBackoffConfig returns sensible defaults for startup dependencies
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  5,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Backoff implements exponential backoff with optional jitter
type Backoff struct {
	config BackoffConfig
}

// New creates a new backoff instance
func New(config BackoffConfig) *Backoff {
	if config.InitialDelay <= 0 {
		config.InitialDelay = 1 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.Multiplier <= 1.0 {
		config.Multiplier = 2.0
	}
	return &Backoff{config: config}
}

// Retry executes operation with exponential backoff until it succeeds or
// attempts are exhausted.
func (b *Backoff) Retry(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == b.config.MaxAttempts {
			break
		}

		delay := b.calculateDelay(attempt)
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", b.config.MaxAttempts, lastErr)
}

func (b *Backoff) calculateDelay(attempt int) time.Duration {
	delay := float64(b.config.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= b.config.Multiplier
	}

	if delay > float64(b.config.MaxDelay) {
		delay = float64(b.config.MaxDelay)
	}

	if b.config.Jitter {
		// up to 25% jitter to avoid thundering herds
		jitter := delay * 0.25 * rand.Float64()
		delay += jitter
	}

	return time.Duration(delay)
}
