// Package metrics provides Prometheus metrics collection shared by every
// daemon's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors a daemon registers at startup. Each daemon
// only populates the subset of fields relevant to it; unused vectors simply
// never get observations.
type Metrics struct {
	// Aggregator (C9)
	RegistrySize          prometheus.Gauge
	StatusUpdatesTotal     *prometheus.CounterVec
	NotificationsTotal     *prometheus.CounterVec
	SweepRunsTotal         prometheus.Counter
	SweepTimeoutsTotal     prometheus.Counter
	WriterLockTimeoutTotal prometheus.Counter

	// Reconciler (C10)
	ManifestsDiscoveredTotal prometheus.Counter
	ManifestsAppliedTotal    *prometheus.CounterVec
	VhostWritesTotal         prometheus.Counter

	// Sync loop (C11)
	RepoSyncTotal    *prometheus.CounterVec
	RepoRestartTotal prometheus.Counter

	// Gateway (C12)
	GatewayRequestsTotal *prometheus.CounterVec
}

// New creates a Metrics instance registered against the default registerer,
// with every collector name-spaced by daemon so one host's combined
// /metrics text stays disambiguated.
func New(daemon string) *Metrics {
	return NewWithRegistry(daemon, prometheus.DefaultRegisterer)
}

// NewWithRegistry allows tests to supply an isolated registry.
func NewWithRegistry(daemon string, reg prometheus.Registerer) *Metrics {
	factory := prometheus.WrapRegistererWith(prometheus.Labels{"daemon": daemon}, reg)

	m := &Metrics{
		RegistrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "artisan_aggregator_registry_size",
			Help: "Number of AppName keys currently held in the aggregator registry.",
		}),
		StatusUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artisan_aggregator_status_updates_total",
			Help: "Total StatusUpdate messages applied, by app and outcome.",
		}, []string{"app", "outcome"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artisan_notifications_total",
			Help: "Total notifications sent, by reason and outcome.",
		}, []string{"reason", "outcome"}),
		SweepRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artisan_aggregator_sweep_runs_total",
			Help: "Total timeout-sweep passes executed.",
		}),
		SweepTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artisan_aggregator_sweep_timeouts_total",
			Help: "Total registry entries transitioned to TimedOut by a sweep.",
		}),
		WriterLockTimeoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artisan_aggregator_writer_lock_timeouts_total",
			Help: "Total writer-lock acquisitions that timed out and were dropped.",
		}),
		ManifestsDiscoveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artisan_reconciler_manifests_discovered_total",
			Help: "Total manifest files discovered across all ticks.",
		}),
		ManifestsAppliedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artisan_reconciler_manifests_applied_total",
			Help: "Total manifests processed, by outcome.",
		}, []string{"outcome"}),
		VhostWritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artisan_reconciler_vhost_writes_total",
			Help: "Total vhost files actually rewritten (content changed).",
		}),
		RepoSyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artisan_sync_repo_total",
			Help: "Total per-repo sync attempts, by outcome.",
		}, []string{"outcome"}),
		RepoRestartTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artisan_sync_repo_restart_total",
			Help: "Total service restarts triggered by new commits.",
		}),
		GatewayRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artisan_gateway_requests_total",
			Help: "Total management-gateway requests, by request_type and status.",
		}, []string{"request_type", "status"}),
	}

	for _, c := range []prometheus.Collector{
		m.RegistrySize, m.StatusUpdatesTotal, m.NotificationsTotal, m.SweepRunsTotal,
		m.SweepTimeoutsTotal, m.WriterLockTimeoutTotal, m.ManifestsDiscoveredTotal,
		m.ManifestsAppliedTotal, m.VhostWritesTotal, m.RepoSyncTotal, m.RepoRestartTotal,
		m.GatewayRequestsTotal,
	} {
		factory.MustRegister(c)
	}

	return m
}
