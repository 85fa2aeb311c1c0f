package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_ZeroDelayNeverBlocks(t *testing.T) {
	t.Parallel()

	l := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	require.Less(t, time.Since(start), time.Second)
}

func TestLimiter_EnforcesDelay(t *testing.T) {
	t.Parallel()

	l := New(50 * time.Millisecond)
	ctx := context.Background()

	// First wait consumes the initial token; the next two must be paced.
	require.NoError(t, l.Wait(ctx))
	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestLimiter_CanceledContext(t *testing.T) {
	t.Parallel()

	l := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Wait(ctx))
	cancel()
	err := l.Wait(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit wait")
}
