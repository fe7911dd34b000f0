package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasSaneFloors(t *testing.T) {
	cfg := ratelimiter.DefaultConfig()
	assert.Greater(t, cfg.OpsPerSecond, 0.0)
	assert.Greater(t, cfg.Burst, 0)
}

func TestNewAppliesFloorsOnZeroValues(t *testing.T) {
	l := ratelimiter.New(ratelimiter.Config{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func TestWaitBoundedTimesOutUnderExhaustedBudget(t *testing.T) {
	l := ratelimiter.New(ratelimiter.Config{OpsPerSecond: 0.001, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.WaitBounded(ctx, time.Second))

	err := l.WaitBounded(ctx, 50*time.Millisecond)
	assert.Error(t, err)
}
