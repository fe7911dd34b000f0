package reconciler_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggregator"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/reconciler"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentNotifier struct{}

func (silentNotifier) Notify(ctx context.Context, subject, body string) error { return nil }

func startAggregatorFor(t *testing.T) *aggclient.Client {
	t.Helper()
	logger := obslog.New("aggregator", "error", "json")
	registry := aggregator.New(version.Tag{Number: "1.0.0", Channel: version.Production}, "machine-1", silentNotifier{}, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go registry.Run(ctx)

	socketPath := filepath.Join(t.TempDir(), "ais.sock")
	server := aggregator.NewServer(registry, socketPath, logger, nil, func(int) {})
	go server.ListenAndServe(ctx)

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return aggclient.New(socketPath, version.Tag{Number: "1.0.0", Channel: version.Production})
}

// TestRunOnceAppliesPlainManifestAndPostsRunningStatus covers a manifest with
// no Apache, Node.js, or service_settings block: the pipeline should succeed
// without touching the init system at all.
func TestRunOnceAppliesPlainManifestAndPostsRunningStatus(t *testing.T) {
	base := t.TempDir()
	projectDir := filepath.Join(base, "site-a")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "directive.ais"), []byte(`{"url":"example.test","port":8080}`), 0o644))

	logger := obslog.New("reconciler", "error", "json")
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry("reconciler", reg)

	client := startAggregatorFor(t)
	cfg := reconciler.Config{
		ProjectBase:  base,
		VhostDir:     t.TempDir(),
		UnitDir:      t.TempDir(),
		WatchDir:     t.TempDir(),
		ManifestName: "directive.ais",
	}
	r := reconciler.New(cfg, initsystem.New(), client, logger, m)
	r.RunOnce(context.Background())

	rec, ok, err := client.QueryStatus(context.Background(), statusmodel.Directive)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, statusmodel.Running, rec.Status)
}

func TestRunOnceSkipsNonManifestFiles(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "README.md"), []byte("not a manifest"), 0o644))

	logger := obslog.New("reconciler", "error", "json")
	client := startAggregatorFor(t)
	cfg := reconciler.Config{ProjectBase: base, ManifestName: "directive.ais"}
	r := reconciler.New(cfg, initsystem.New(), client, logger, nil)

	r.RunOnce(context.Background())

	_, ok, err := client.QueryStatus(context.Background(), statusmodel.Directive)
	require.NoError(t, err)
	assert.False(t, ok)
}
