// Command gateway runs the Management gateway daemon (spec §4.7, C12).
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
	"github.com/Artisan-Hosting/Artisan-Platform/internal/gateway"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/httpserver"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/platformconfig"
)

func main() {
	logger := obslog.NewFromEnv("gateway")
	m := metrics.New("gateway")

	oracle := cryptoclient.New(platformconfig.EnvString("ARTISAN_CRYPTO_SOCKET", platformconfig.DefaultCryptoSocketPath))
	store := credentials.New(platformconfig.EnvString("ARTISAN_CREDENTIALS_PATH", platformconfig.DefaultCredentialsPath), oracle)

	cfg := gateway.Config{
		Addr:         platformconfig.EnvString("ARTISAN_MGMT_ADDR", platformconfig.DefaultMgmtAddr),
		SyncLoopUnit: platformconfig.EnvString("ARTISAN_SYNCLOOP_UNIT", platformconfig.DefaultSyncLoopUnit),
		LocalVersion: buildinfo.LocalVersion,
	}

	aggClient := aggclient.New(platformconfig.EnvString("ARTISAN_AGGREGATOR_SOCKET", platformconfig.DefaultAggregatorSocketPath), buildinfo.LocalVersion)
	initDriver := initsystem.New()

	g := gateway.New(cfg, aggClient, store, initDriver, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	health := httpserver.New("gateway", platformconfig.EnvString("ARTISAN_HEALTH_ADDR", platformconfig.DefaultGatewayHealthAddr), logger)
	health.SetReady(true)
	go func() {
		if err := health.ListenAndServe(ctx); err != nil {
			logger.WithError(err).Warn("health server exited")
		}
	}()

	logger.WithField("addr", cfg.Addr).Info("gateway listening")
	if err := g.ListenAndServe(ctx); err != nil {
		logger.WithError(err).Fatal("gateway server exited")
	}
}
