package reconciler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/reconciler"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsOnSchedule(t *testing.T) {
	base := t.TempDir()
	projectDir := filepath.Join(base, "site-a")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "directive.ais"), []byte(`{"url":"example.test","port":8080}`), 0o644))

	logger := obslog.New("reconciler", "error", "json")
	client := startAggregatorFor(t)
	cfg := reconciler.Config{
		ProjectBase:  base,
		VhostDir:     t.TempDir(),
		ManifestName: "directive.ais",
	}
	r := reconciler.New(cfg, initsystem.New(), client, logger, nil)

	loop := reconciler.NewLoop(r, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, loop.Start(ctx))

	require.Eventually(t, func() bool {
		_, ok, err := client.QueryStatus(context.Background(), statusmodel.Directive)
		return err == nil && ok
	}, 2*time.Second, 20*time.Millisecond)
}
