package aggregator_test

import (
	"context"
	"testing"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggregator"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
	"github.com/stretchr/testify/require"
)

func TestSweeperFiresOnSchedule(t *testing.T) {
	logger := obslog.New("aggregator", "error", "json")
	notifier := &recordingNotifier{}
	registry := aggregator.New(version.Tag{Number: "1.0.0", Channel: version.Production}, "machine-1", notifier, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.Run(ctx)

	stale := time.Now().Add(-120 * time.Second)
	registry.Update(ctx, statusmodel.StatusRecord{App: statusmodel.Apache, Status: statusmodel.Running, WallSeconds: uint64(stale.Unix())})

	sweeper := aggregator.NewSweeper(registry, 50*time.Millisecond)
	require.NoError(t, sweeper.Start(ctx))

	require.Eventually(t, func() bool {
		rec, ok := registry.QueryOne(ctx, statusmodel.Apache)
		return ok && rec.Status == statusmodel.TimedOut
	}, 2*time.Second, 20*time.Millisecond)
}
