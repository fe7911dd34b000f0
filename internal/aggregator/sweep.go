package aggregator

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs Registry.Sweep on a fixed cadence using the same cron
// scheduler the Reconciler and Sync loop use for their own ticks, so every
// daemon's periodic work is driven by one consistent scheduling primitive.
type Sweeper struct {
	registry *Registry
	cron     *cron.Cron
	period   time.Duration
}

// NewSweeper constructs a Sweeper at the given period (spec §4.4: 15s).
func NewSweeper(registry *Registry, period time.Duration) *Sweeper {
	return &Sweeper{
		registry: registry,
		cron:     cron.New(),
		period:   period,
	}
}

// Start schedules the sweep and runs until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) error {
	spec := "@every " + s.period.String()
	if _, err := s.cron.AddFunc(spec, func() {
		s.registry.Sweep(ctx, time.Now())
	}); err != nil {
		return err
	}
	s.cron.Start()
	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()
	return nil
}
