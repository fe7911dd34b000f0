package reconciler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Loop drives RunOnce on a fixed cadence (spec §4.5 Loop cadence: 10s).
type Loop struct {
	reconciler *Reconciler
	cron       *cron.Cron
	period     time.Duration
}

// NewLoop constructs a Loop at the given period. SkipIfStillRunning guards
// against a slow tick (e.g. a stuck npm install) overlapping the next one
// and racing on the same manifest's rendered files.
func NewLoop(r *Reconciler, period time.Duration) *Loop {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	return &Loop{reconciler: r, cron: c, period: period}
}

// Start schedules RunOnce and runs until ctx is canceled.
func (l *Loop) Start(ctx context.Context) error {
	spec := "@every " + l.period.String()
	if _, err := l.cron.AddFunc(spec, func() {
		l.reconciler.RunOnce(ctx)
	}); err != nil {
		return err
	}
	l.cron.Start()
	go func() {
		<-ctx.Done()
		stopCtx := l.cron.Stop()
		<-stopCtx.Done()
	}()
	return nil
}
