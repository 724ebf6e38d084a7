package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(3, 10*time.Millisecond, 100*time.Millisecond)

	require.False(t, p.ShouldRetry(nil, 0))
	require.True(t, p.ShouldRetry(errors.New("connection reset"), 0))
	require.False(t, p.ShouldRetry(errors.New("connection reset"), 3))
	require.False(t, p.ShouldRetry(context.Canceled, 0))
	require.False(t, p.ShouldRetry(context.DeadlineExceeded, 0))
}

func TestRetryPolicyBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(5, 10*time.Millisecond, 80*time.Millisecond)

	for attempt := 0; attempt < 5; attempt++ {
		delay := p.Backoff(attempt)
		require.Greater(t, delay, time.Duration(0))
		require.LessOrEqual(t, delay, 80*time.Millisecond)
	}
}

func TestRetryPolicySleepRespectsContext(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(3, time.Minute, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Sleep(ctx, 3)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestHostLimiterSpacesRequestsPerHost(t *testing.T) {
	t.Parallel()

	l := NewHostLimiter(20) // 50ms between requests

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://portal.example/bids"))
	}
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	// A different host has its own budget.
	other := time.Now()
	require.NoError(t, l.Wait(context.Background(), "https://other.example/bids"))
	require.Less(t, time.Since(other), 40*time.Millisecond)
}
