package utils

import (
	"context"
	"time"
)

// Backoff is a capped exponential delay schedule.
type Backoff struct {
	MaxRetries int
	Delay      time.Duration
	MaxDelay   time.Duration
}

// NextDelay returns the wait before retry number attempt (0-based).
func (b Backoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return b.MaxDelay
	}
	d := b.Delay << attempt
	if d <= 0 || d > b.MaxDelay {
		return b.MaxDelay
	}
	return d
}

// Sleep waits for the delay of attempt or until ctx is done.
func (b Backoff) Sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(b.NextDelay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
