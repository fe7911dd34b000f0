// Command syncloop runs the Repository Sync Loop daemon (spec §4.6, C11).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/buildinfo"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/credentials"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/cryptoclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/httpserver"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/platformconfig"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/ratelimiter"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/syncloop"
)

func main() {
	logger := obslog.NewFromEnv("syncloop")
	m := metrics.New("syncloop")

	oracle := cryptoclient.New(platformconfig.EnvString("ARTISAN_CRYPTO_SOCKET", platformconfig.DefaultCryptoSocketPath))
	store := credentials.New(platformconfig.EnvString("ARTISAN_CREDENTIALS_PATH", platformconfig.DefaultCredentialsPath), oracle)

	cfg := syncloop.Config{
		ProjectsBase: platformconfig.EnvString("ARTISAN_PROJECT_BASE", platformconfig.DefaultProjectBase),
		OwnerGroup:   platformconfig.EnvString("ARTISAN_OWNER_GROUP", platformconfig.DefaultOwnerGroup),
		LocalVersion: buildinfo.LocalVersion,
	}

	aggClient := aggclient.New(platformconfig.EnvString("ARTISAN_AGGREGATOR_SOCKET", platformconfig.DefaultAggregatorSocketPath), buildinfo.LocalVersion)
	initDriver := initsystem.New()
	limiter := ratelimiter.New(ratelimiter.DefaultConfig())

	s := syncloop.New(cfg, store, initDriver, aggClient, limiter, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	loop := syncloop.NewLoop(s,
		platformconfig.EnvDuration("ARTISAN_SYNC_TICK", platformconfig.DefaultSyncTick),
		platformconfig.EnvDuration("ARTISAN_SYNC_HEARTBEAT", platformconfig.DefaultSyncHeartbeat),
	)
	if err := loop.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start sync loop")
	}

	health := httpserver.New("syncloop", platformconfig.EnvString("ARTISAN_HEALTH_ADDR", platformconfig.DefaultSyncLoopHealthAddr), logger)
	health.SetReady(true)

	logger.Info("sync loop running")
	if err := health.ListenAndServe(ctx); err != nil {
		logger.WithError(err).Error("health server exited")
	}
}
