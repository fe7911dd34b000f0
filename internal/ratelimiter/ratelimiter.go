// Package ratelimiter throttles outbound source-control operations so the
// sync loop (C11) does not starve itself against a remote host's rate limit
// when a tick fans out over many repositories.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Config tunes the token bucket.
type Config struct {
	OpsPerSecond float64
	Burst        int
}

// DefaultConfig allows a modest burst of repo operations per tick without
// hammering a git host.
func DefaultConfig() Config {
	return Config{OpsPerSecond: 4, Burst: 8}
}

// Limiter wraps golang.org/x/time/rate for source-control operations.
type Limiter struct {
	limiter *rate.Limiter
}

// New constructs a Limiter from Config, applying sane floors.
func New(cfg Config) *Limiter {
	if cfg.OpsPerSecond <= 0 {
		cfg.OpsPerSecond = 4
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.OpsPerSecond * 2)
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(cfg.OpsPerSecond), cfg.Burst)}
}

// Wait blocks until an operation may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// WaitBounded is Wait bounded by an additional timeout, used so one slow
// repo cannot stall an entire sync-loop tick.
func (l *Limiter) WaitBounded(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return l.Wait(ctx)
}
