package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 5)
	assert.Equal(t, rate.Limit(10), lim.Limit())

	for i := 0; i < 20; i++ {
		lim.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), lim.Limit(), "capped at 2x initial")

	for i := 0; i < 20; i++ {
		lim.OnRateLimit()
	}
	assert.Equal(t, rate.Limit(2.5), lim.Limit(), "floored at initial/4")
}

func TestAdaptiveLimiter_Wait(t *testing.T) {
	lim := NewAdaptiveLimiter(100, 0)
	require.NoError(t, lim.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}
