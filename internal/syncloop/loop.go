package syncloop

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Loop drives RunOnce on a fixed cadence and logs a separate heartbeat
// (spec §4.6 Cadence: 20s tick, 60s heartbeat).
type Loop struct {
	syncLoop        *SyncLoop
	cron            *cron.Cron
	tickPeriod      time.Duration
	heartbeatPeriod time.Duration
}

// NewLoop constructs a Loop. SkipIfStillRunning guards against a slow tick
// (e.g. a large repo's clone/fetch/pull over a slow network) overlapping the
// next one and racing on the same repo's working tree.
func NewLoop(s *SyncLoop, tickPeriod, heartbeatPeriod time.Duration) *Loop {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	return &Loop{syncLoop: s, cron: c, tickPeriod: tickPeriod, heartbeatPeriod: heartbeatPeriod}
}

// Start schedules the tick and the heartbeat and runs until ctx is canceled.
func (l *Loop) Start(ctx context.Context) error {
	if _, err := l.cron.AddFunc("@every "+l.tickPeriod.String(), func() {
		l.syncLoop.RunOnce(ctx)
	}); err != nil {
		return err
	}
	if _, err := l.cron.AddFunc("@every "+l.heartbeatPeriod.String(), func() {
		l.syncLoop.logger.Info("sync loop heartbeat")
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
