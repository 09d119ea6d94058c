package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("host", 3, 0.0001))
	}
	assert.False(t, l.Allow("host", 3, 0.0001))
}

func TestAllowRefills(t *testing.T) {
	l := New()

	require.True(t, l.Allow("h", 1, 50)) // drain
	require.False(t, l.Allow("h", 1, 50))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow("h", 1, 50))
}

func TestKeysIndependent(t *testing.T) {
	l := New()

	require.True(t, l.Allow("a", 1, 0.0001))
	assert.True(t, l.Allow("b", 1, 0.0001))
}

func TestWaitBlocksUntilToken(t *testing.T) {
	l := New()
	require.True(t, l.Allow("h", 1, 20))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "h", 1, 20))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitCancellation(t *testing.T) {
	l := New()
	require.True(t, l.Allow("h", 1, 0.001))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "h", 1, 0.001), context.DeadlineExceeded)
}
