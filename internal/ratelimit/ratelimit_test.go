package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClock(l *Limiter, start time.Time) *time.Time {
	current := start
	l.now = func() time.Time { return current }
	l.last = start
	return &current
}

// take grabs a token without blocking
func take(l *Limiter) bool {
	return l.reserve() == 0
}

func TestLimiterBurstThenRefill(t *testing.T) {
	l := New(2)
	clock := fakeClock(l, time.Unix(1_700_000_000, 0))

	assert.True(t, take(l))
	assert.True(t, take(l))
	assert.False(t, take(l))

	*clock = clock.Add(500 * time.Millisecond)
	assert.True(t, take(l))
	assert.False(t, take(l))
}

func TestLimiterSubOneRate(t *testing.T) {
	l := New(0.5)
	clock := fakeClock(l, time.Unix(1_700_000_000, 0))

	assert.True(t, take(l))
	assert.False(t, take(l))
	assert.InDelta(t, 2*time.Second, l.reserve(), float64(time.Millisecond))

	*clock = clock.Add(2 * time.Second)
	assert.True(t, take(l))
}

func TestLimiterNonPositiveRate(t *testing.T) {
	l := New(0)
	assert.Equal(t, 1.0, l.rps)
	assert.True(t, take(l))
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(0.01)
	require.True(t, take(l))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReturnsImmediatelyWithToken(t *testing.T) {
	l := New(5)
	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
