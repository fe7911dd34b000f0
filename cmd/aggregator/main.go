// Command aggregator runs the Aggregator daemon (spec §4.4, C9): the
// status registry, its timeout sweeper, and the local socket server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggregator"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/buildinfo"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/cryptoclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/hostid"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/httpserver"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/notify"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/platformconfig"
)

func main() {
	logger := obslog.NewFromEnv("aggregator")

	machineID, err := hostid.Get()
	if err != nil {
		logger.WithError(err).Fatal("cannot resolve host identity")
	}

	oracle := cryptoclient.New(platformconfig.EnvString("ARTISAN_CRYPTO_SOCKET", platformconfig.DefaultCryptoSocketPath))
	notifier := notify.New(oracle, notify.Config{
		RelayAddr: platformconfig.EnvString("ARTISAN_NOTIFY_RELAY_ADDR", platformconfig.DefaultNotifyRelayAddr),
	})

	m := metrics.New("aggregator")

	registry := aggregator.New(buildinfo.LocalVersion, machineID, notifier, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	go registry.Run(ctx)

	sweeper := aggregator.NewSweeper(registry, platformconfig.EnvDuration("ARTISAN_SWEEP_PERIOD", platformconfig.DefaultAggregatorSweepPeriod))
	if err := sweeper.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start timeout sweeper")
	}

	socketPath := platformconfig.EnvString("ARTISAN_AGGREGATOR_SOCKET", platformconfig.DefaultAggregatorSocketPath)
	server := aggregator.NewServer(registry, socketPath, logger, m, nil)

	health := httpserver.New("aggregator", platformconfig.EnvString("ARTISAN_HEALTH_ADDR", platformconfig.DefaultAggregatorHealthAddr), logger)
	health.SetReady(true)
	go func() {
		if err := health.ListenAndServe(ctx); err != nil {
			logger.WithError(err).Warn("health server exited")
		}
	}()

	logger.WithField("socket", socketPath).Info("aggregator listening")
	if err := server.ListenAndServe(ctx); err != nil {
		logger.WithError(err).Error("aggregator socket server exited")
		os.Exit(1)
	}

	log.Println("aggregator shut down cleanly")
}
