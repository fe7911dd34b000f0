// Package syncloop implements the Repository Sync Loop (spec §4.6, C11): per
// tick, clone-or-fast-forward every configured repository's working tree,
// detect new commits, and restart the owning service on detection.
package syncloop

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/credentials"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/ratelimiter"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/repo"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
)

// Config wires the paths and dependencies SyncLoop needs.
type Config struct {
	ProjectsBase  string
	OwnerGroup    string // chown target, e.g. "www:www"
	LocalVersion  version.Tag
}

// DefaultCredentialsUnreadableBackoff is how long RunOnce sleeps before
// exiting the process on an unreadable credentials file (spec §4.6: "sync
// loop emits Warning, sleeps 30s, exits; the init system restarts it").
const DefaultCredentialsUnreadableBackoff = 30 * time.Second

// SyncLoop owns one tick of the repository sync pipeline.
type SyncLoop struct {
	cfg     Config
	store   *credentials.Store
	init    *initsystem.Driver
	agg     *aggclient.Client
	limiter *ratelimiter.Limiter
	logger  *obslog.Logger
	metrics *metrics.Metrics
	sleep   func(time.Duration)
	exit    func(code int)
}

// New constructs a SyncLoop.
func New(cfg Config, store *credentials.Store, init *initsystem.Driver, agg *aggclient.Client, limiter *ratelimiter.Limiter, logger *obslog.Logger, m *metrics.Metrics) *SyncLoop {
	return &SyncLoop{
		cfg: cfg, store: store, init: init, agg: agg, limiter: limiter, logger: logger, metrics: m,
		sleep: time.Sleep, exit: os.Exit,
	}
}

// RunOnce decrypts the credentials file, shuffles the repo order, and runs
// the per-auth pipeline for each (spec §4.6). An unreadable credentials file
// is startup-fatal (spec §4.6/§6): RunOnce posts Warning, sleeps
// DefaultCredentialsUnreadableBackoff, then exits so the init system's
// restart/backoff takes over.
func (s *SyncLoop) RunOnce(ctx context.Context) {
	items, err := s.store.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Error("credentials unreadable")
		s.postGithubStatus(ctx, statusmodel.Warning)
		s.sleep(DefaultCredentialsUnreadableBackoff)
		s.exit(1)
		return
	}

	order := rand.Perm(len(items))
	anyFailed := false
	for _, idx := range order {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.syncOne(ctx, items[idx]); err != nil {
			s.logger.WithError(err).WithField("service_id", items[idx].ServiceID()).Warn("repo sync failed")
			anyFailed = true
			if s.metrics != nil {
				s.metrics.RepoSyncTotal.WithLabelValues("failed").Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.RepoSyncTotal.WithLabelValues("synced").Inc()
		}
	}

	if anyFailed {
		s.postGithubStatus(ctx, statusmodel.Warning)
	} else {
		s.postGithubStatus(ctx, statusmodel.Running)
	}
}

// syncOne runs the fixed clone-or-fetch/pull pipeline for one RepoAuth
// (spec §4.6 steps 1-5), retrying once on a "safe directory" error.
func (s *SyncLoop) syncOne(ctx context.Context, auth credentials.RepoAuth) error {
	serviceID := auth.ServiceID()
	projectDir := filepath.Join(s.cfg.ProjectsBase, serviceID)
	url := fmt.Sprintf("https://github.com/%s/%s.git", auth.User, auth.Repo)

	driver := repo.New(projectDir)

	if !repo.Exists(projectDir) {
		if err := repo.Clone(ctx, url, projectDir, repo.DefaultTimeout); err != nil {
			return err
		}
		if err := repo.Chown(projectDir, s.cfg.OwnerGroup); err != nil {
			return err
		}
		if err := s.withSafeRetry(ctx, driver, driver.MarkSafe); err != nil {
			return err
		}
		return s.withSafeRetry(ctx, driver, driver.Fetch)
	}

	if err := s.withSafeRetry(ctx, driver, driver.MarkSafe); err != nil {
		return err
	}
	if err := s.withSafeRetry(ctx, driver, driver.Fetch); err != nil {
		return err
	}

	changed := false
	pull := func(ctx context.Context) error {
		c, err := driver.Pull(ctx, auth.Branch)
		changed = c
		return err
	}
	if err := s.withSafeRetry(ctx, driver, pull); err != nil {
		return err
	}

	if changed {
		if err := driver.ConfigureTracking(ctx, auth.Branch); err != nil {
			return err
		}
		if err := driver.Switch(ctx, auth.Branch); err != nil {
			return err
		}
		exists, err := s.init.Exists(ctx, serviceID)
		if err != nil {
			return err
		}
		if exists {
			if _, err := s.init.Restart(ctx, serviceID); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.RepoRestartTotal.Inc()
			}
		}
	}
	return nil
}

// withSafeRetry runs op; on a "safe directory" error it marks the directory
// safe and retries op exactly once (spec §4.6 step 5).
func (s *SyncLoop) withSafeRetry(ctx context.Context, driver *repo.Driver, op func(ctx context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if !repo.IsSafeDirectoryError(err.Error()) {
		return err
	}
	if markErr := driver.MarkSafe(ctx); markErr != nil {
		return markErr
	}
	return op(ctx)
}

func (s *SyncLoop) postGithubStatus(ctx context.Context, status statusmodel.AppStatus) {
	record := statusmodel.StatusRecord{
		App:         statusmodel.Github,
		Status:      status,
		WallSeconds: uint64(time.Now().Unix()),
		Version:     s.cfg.LocalVersion,
	}
	if err := s.agg.PostStatus(ctx, record); err != nil {
		s.logger.WithError(err).Debug("post status to aggregator failed")
	}
}
