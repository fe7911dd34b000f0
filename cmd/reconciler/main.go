// Command reconciler runs the Deployment Reconciler daemon (spec §4.5, C10).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/buildinfo"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/httpserver"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/platformconfig"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/reconciler"
)

func main() {
	logger := obslog.NewFromEnv("reconciler")
	m := metrics.New("reconciler")

	cfg := reconciler.Config{
		ProjectBase:   platformconfig.EnvString("ARTISAN_PROJECT_BASE", platformconfig.DefaultProjectBase),
		VhostDir:      platformconfig.EnvString("ARTISAN_VHOST_DIR", platformconfig.DefaultVhostDir),
		UnitDir:       platformconfig.EnvString("ARTISAN_UNIT_DIR", platformconfig.DefaultUnitDir),
		WatchDir:      platformconfig.EnvString("ARTISAN_WATCH_DIR", platformconfig.DefaultWatchDir),
		ManifestName:  platformconfig.EnvString("ARTISAN_MANIFEST_NAME", platformconfig.DefaultManifestName),
		LocalVersion:  buildinfo.LocalVersion,
		WebServerUnit: platformconfig.EnvString("ARTISAN_WEB_SERVER_UNIT", platformconfig.DefaultWebServerUnit),
	}

	aggClient := aggclient.New(platformconfig.EnvString("ARTISAN_AGGREGATOR_SOCKET", platformconfig.DefaultAggregatorSocketPath), buildinfo.LocalVersion)
	initDriver := initsystem.New()

	r := reconciler.New(cfg, initDriver, aggClient, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	loop := reconciler.NewLoop(r, platformconfig.EnvDuration("ARTISAN_RECONCILER_TICK", platformconfig.DefaultReconcilerTick))
	if err := loop.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start reconciler loop")
	}

	health := httpserver.New("reconciler", platformconfig.EnvString("ARTISAN_HEALTH_ADDR", platformconfig.DefaultReconcilerHealthAddr), logger)
	health.SetReady(true)

	logger.Info("reconciler running")
	if err := health.ListenAndServe(ctx); err != nil {
		logger.WithError(err).Error("health server exited")
	}
}
