package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat-client/internal/domain/retry"
)

func TestPolicy_CalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		policy   retry.Policy
		attempt  int
		expected time.Duration
	}{
		{
			name:     "zero attempt has no delay",
			policy:   retry.ReconnectPolicy(3*time.Second, 5),
			attempt:  0,
			expected: 0,
		},
		{
			name:     "fixed backoff - attempt 1",
			policy:   retry.ReconnectPolicy(3*time.Second, 5),
			attempt:  1,
			expected: 3 * time.Second,
		},
		{
			name:     "fixed backoff - attempt 5",
			policy:   retry.ReconnectPolicy(3*time.Second, 5),
			attempt:  5,
			expected: 3 * time.Second,
		},
		{
			name:     "single retry waits its delay",
			policy:   retry.SingleRetryPolicy(time.Second),
			attempt:  1,
			expected: time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.policy.CalculateDelay(tt.attempt))
		})
	}
}

func TestPolicy_ShouldRetry(t *testing.T) {
	capped := retry.ReconnectPolicy(time.Second, 5)
	for attempt := 0; attempt < 5; attempt++ {
		assert.True(t, capped.ShouldRetry(attempt), "attempt %d", attempt)
	}
	assert.False(t, capped.ShouldRetry(5))

	unlimited := retry.ReconnectPolicy(time.Second, 0)
	assert.True(t, unlimited.IsUnlimited())
	assert.True(t, unlimited.ShouldRetry(1_000_000))

	single := retry.SingleRetryPolicy(time.Second)
	assert.True(t, single.ShouldRetry(0))
	assert.False(t, single.ShouldRetry(1))
}

func TestExecutor_RetriesOnceThenGivesUp(t *testing.T) {
	exec := retry.NewExecutor(retry.SingleRetryPolicy(5*time.Millisecond), nil)
	calls := 0
	boom := errors.New("boom")

	err := exec.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestExecutor_SucceedsOnRetry(t *testing.T) {
	exec := retry.NewExecutor(retry.SingleRetryPolicy(5*time.Millisecond), nil)
	calls := 0

	err := exec.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt == 0 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecutor_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	exec := retry.NewExecutor(retry.SingleRetryPolicy(5*time.Millisecond), func(err error) bool {
		return !errors.Is(err, fatal)
	})
	calls := 0

	err := exec.Execute(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return fatal
	})

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestExecutor_ContextCancelledDuringWait(t *testing.T) {
	exec := retry.NewExecutor(retry.SingleRetryPolicy(time.Hour), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := exec.Execute(ctx, func(ctx context.Context, attempt int) error {
		return errors.New("fail")
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait(t *testing.T) {
	require.NoError(t, retry.Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, retry.Wait(ctx, time.Hour), context.Canceled)
}
