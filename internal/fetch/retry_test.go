package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
)

func testRetrier(clk clockwork.Clock, policy RetryPolicy) *Retrier {
	return NewRetrier(policy, clk, discardLogger(), observability.NewMetricsForTesting())
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	r := testRetrier(clockwork.NewFakeClock(), DefaultRetryPolicy())

	calls := 0
	result, err := Do(context.Background(), r, "weather", func(context.Context) (int, error) {
		calls++
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttemptsWithBackoff(t *testing.T) {
	clk := clockwork.NewFakeClock()
	r := testRetrier(clk, RetryPolicy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, BackoffFactor: 2.0})

	boom := errors.New("upstream down")
	attempts := make(chan time.Time, 3)
	done := make(chan error, 1)

	go func() {
		_, err := Do(context.Background(), r, "pollution", func(context.Context) (string, error) {
			attempts <- clk.Now()
			return "", boom
		})
		done <- err
	}()

	first := <-attempts

	// Backoff before attempt 2: 500ms.
	clk.BlockUntil(1)
	clk.Advance(500 * time.Millisecond)
	second := <-attempts
	assert.Equal(t, 500*time.Millisecond, second.Sub(first))

	// Backoff before attempt 3: 500ms * 2.
	clk.BlockUntil(1)
	clk.Advance(time.Second)
	third := <-attempts
	assert.Equal(t, 1500*time.Millisecond, third.Sub(first))

	err := <-done
	assert.ErrorIs(t, err, boom, "final error must be propagated")
}

func TestDo_RecoversAfterFailure(t *testing.T) {
	clk := clockwork.NewFakeClock()
	r := testRetrier(clk, RetryPolicy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, BackoffFactor: 2.0})

	calls := 0
	done := make(chan struct{})
	var result string
	var err error

	go func() {
		result, err = Do(context.Background(), r, "weather", func(context.Context) (string, error) {
			calls++
			if calls < 2 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		close(done)
	}()

	clk.BlockUntil(1)
	clk.Advance(500 * time.Millisecond)
	<-done

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	clk := clockwork.NewFakeClock()
	r := testRetrier(clk, DefaultRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		_, err := Do(ctx, r, "weather", func(context.Context) (int, error) {
			return 0, errors.New("transient")
		})
		done <- err
	}()

	clk.BlockUntil(1) // retrier is sleeping
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRetrier_AppliesDefaults(t *testing.T) {
	r := NewRetrier(RetryPolicy{}, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())

	assert.Equal(t, 3, r.policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, r.policy.InitialDelay)
	assert.Equal(t, 2.0, r.policy.BackoffFactor)
}
