package aggclient_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggregator"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, subject, body string) error { return nil }

func startAggregatorForClient(t *testing.T) string {
	t.Helper()
	logger := obslog.New("aggregator", "error", "json")
	registry := aggregator.New(version.Tag{Number: "1.0.0", Channel: version.Production}, "machine-1", noopNotifier{}, logger, nil)

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

	return socketPath
}

func TestPostStatusThenQueryStatus(t *testing.T) {
	socketPath := startAggregatorForClient(t)
	client := aggclient.New(socketPath, version.Tag{Number: "1.0.0", Channel: version.Production})

	ctx := context.Background()
	require.NoError(t, client.PostStatus(ctx, statusmodel.StatusRecord{App: statusmodel.Github, Status: statusmodel.Running, WallSeconds: 500}))

	rec, ok, err := client.QueryStatus(ctx, statusmodel.Github)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, statusmodel.Running, rec.Status)
}

func TestQueryStatusUnknownAppReportsNotFound(t *testing.T) {
	socketPath := startAggregatorForClient(t)
	client := aggclient.New(socketPath, version.Tag{Number: "1.0.0", Channel: version.Production})

	_, ok, err := client.QueryStatus(context.Background(), statusmodel.Security)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryAllStatusesReturnsEveryApp(t *testing.T) {
	socketPath := startAggregatorForClient(t)
	client := aggclient.New(socketPath, version.Tag{Number: "1.0.0", Channel: version.Production})
	ctx := context.Background()

	require.NoError(t, client.PostStatus(ctx, statusmodel.StatusRecord{App: statusmodel.Github, Status: statusmodel.Running}))
	require.NoError(t, client.PostStatus(ctx, statusmodel.StatusRecord{App: statusmodel.Apache, Status: statusmodel.Running}))

	all, err := client.QueryAllStatuses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPostStatusAgainstUnreachableSocketIsAggregatorUnreachable(t *testing.T) {
	client := aggclient.New(filepath.Join(t.TempDir(), "missing.sock"), version.Tag{Number: "1.0.0", Channel: version.Production})
	err := client.PostStatus(context.Background(), statusmodel.StatusRecord{App: statusmodel.Github, Status: statusmodel.Running})
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.KindAggregatorUnreachable))
}
