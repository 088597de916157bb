package match

import (
	"context"
	"errors"
	"time"

	"dementor/internal/telemetry"
)

// RetryPolicy is a bounded exponential-backoff policy for transient lookup
// failures. It is a plain value consumed by the matcher, independent of how
// the surrounding work is scheduled.
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	Backoff  time.Duration // sleep before the second attempt, doubled each retry
}

// DefaultRetryPolicy matches the configuration defaults.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}

// Do runs op, retrying while it returns a *LookupError. Non-transient errors
// and context cancellation stop immediately.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			telemetry.TrackLookupRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = op(); err == nil {
			return nil
		}
		var lookupErr *LookupError
		if !errors.As(err, &lookupErr) {
			return err
		}
	}
	return err
}
