package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

// RetryPolicy controls bounded retry with exponential backoff. The delay
// before attempt n+1 is InitialDelay * BackoffFactor^(n-1).
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy mirrors the upstream providers' documented retry
// guidance: three attempts, 500ms initial delay, doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, BackoffFactor: 2.0}
}

// Retrier executes operations under a RetryPolicy. The clock is injected so
// tests control backoff sleeps.
type Retrier struct {
	policy  RetryPolicy
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRetrier creates a Retrier. Zero or negative policy fields fall back to
// the defaults.
func NewRetrier(policy RetryPolicy, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Retrier {
	def := DefaultRetryPolicy()
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = def.InitialDelay
	}
	if policy.BackoffFactor < 1 {
		policy.BackoffFactor = def.BackoffFactor
	}
	return &Retrier{policy: policy, clock: clock, logger: logger, metrics: metrics}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts per the
// policy. The final error is propagated, never swallowed. Each recovered
// failure is logged with the attempt count and the upcoming delay.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := r.policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts {
			break
		}

		r.logger.Warn("upstream call failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		r.metrics.RetryAttempts.WithLabelValues(op).Inc()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-r.clock.After(delay):
		}
		delay = time.Duration(float64(delay) * r.policy.BackoffFactor)
	}

	return zero, lastErr
}
