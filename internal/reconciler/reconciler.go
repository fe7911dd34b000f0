// Package reconciler implements the Deployment Reconciler (spec §4.5, C10):
// discovers per-project manifests, renders derived host configuration, and
// drives the init system and package installer idempotently.
package reconciler

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/manifest"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/render"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/serviceid"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
)

// Config wires every path and dependency the Reconciler needs.
type Config struct {
	ProjectBase  string
	VhostDir     string
	UnitDir      string
	WatchDir     string
	ManifestName string
	LocalVersion version.Tag
	WebServerUnit string // the Apache/web-server unit reload targets
}

// Reconciler runs one discover-render-apply pass per tick.
type Reconciler struct {
	cfg     Config
	init    *initsystem.Driver
	agg     *aggclient.Client
	logger  *obslog.Logger
	metrics *metrics.Metrics
}

// New constructs a Reconciler.
func New(cfg Config, init *initsystem.Driver, agg *aggclient.Client, logger *obslog.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{cfg: cfg, init: init, agg: agg, logger: logger, metrics: m}
}

// RunOnce discovers every manifest under the project base and applies the
// fixed per-manifest pipeline to each, never stopping early on a single
// manifest's failure (spec §4.5 Failure policy).
func (r *Reconciler) RunOnce(ctx context.Context) {
	manifests, err := discoverManifests(r.cfg.ProjectBase, r.cfg.ManifestName)
	if err != nil {
		r.logger.WithError(err).Warn("manifest discovery failed")
		return
	}

	if r.metrics != nil {
		r.metrics.ManifestsDiscoveredTotal.Add(float64(len(manifests)))
	}

	for _, path := range manifests {
		if err := r.applyManifest(ctx, path); err != nil {
			r.logger.WithError(err).WithField("manifest", path).Warn("manifest reconciliation failed")
			r.postStatus(ctx, statusmodel.Warning)
			if r.metrics != nil {
				r.metrics.ManifestsAppliedTotal.WithLabelValues("failed").Inc()
			}
			continue
		}
		if r.metrics != nil {
			r.metrics.ManifestsAppliedTotal.WithLabelValues("applied").Inc()
		}
	}
}

// applyManifest runs the fixed ordered pipeline for one manifest (spec §4.5).
func (r *Reconciler) applyManifest(ctx context.Context, path string) error {
	relPath, err := filepath.Rel(r.cfg.ProjectBase, path)
	if err != nil {
		relPath = path
	}
	serviceID := serviceid.FromManifestPath(relPath)
	projectDir := filepath.Dir(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Discovered, then vanished before we could read it: race-tolerant no-op.
			return nil
		}
		return ferrors.Wrap(ferrors.KindInvalidManifest, "read manifest", err)
	}

	m, err := manifest.Parse(raw)
	if err != nil {
		return err
	}

	dirty := false
	if m.Apache {
		dirty, err = r.reconcileVhost(projectDir, m)
		if err != nil {
			return err
		}
	}
	if dirty {
		active, err := r.init.Reload(ctx, r.cfg.WebServerUnit)
		if err != nil {
			return err
		}
		if !active {
			r.logger.WithField("manifest", path).Error("web server reload reported not active")
		}
	}

	if m.NodeJSBool {
		if err := r.runPackageInstaller(ctx, projectDir); err != nil {
			return err
		}
	}

	if m.ServiceSettings.ExecCommand != "" {
		if err := r.reconcileUnit(ctx, serviceID, projectDir, m); err != nil {
			return err
		}
	}

	r.postStatus(ctx, statusmodel.Running)
	return nil
}

// reconcileVhost renders the vhost text and writes it only on a byte
// mismatch against the existing file (spec §4.5 step 3, P6).
func (r *Reconciler) reconcileVhost(projectDir string, m manifest.ProjectManifest) (dirty bool, err error) {
	handler := render.PHPHandler(m.PHPFPMVersion)
	rendered := render.VhostConfig(m.URL, m.Port, projectDir, handler)

	vhostPath := filepath.Join(r.cfg.VhostDir, m.URL+".conf")
	existing, readErr := os.ReadFile(vhostPath)
	if readErr == nil && bytes.Equal(existing, []byte(rendered)) {
		return false, nil
	}

	if err := os.WriteFile(vhostPath, []byte(rendered), 0o644); err != nil {
		return false, ferrors.Wrap(ferrors.KindExternalTool, "write vhost file", err)
	}
	if r.metrics != nil {
		r.metrics.VhostWritesTotal.Inc()
	}
	return true, nil
}

// runPackageInstaller runs the Node.js package installer synchronously,
// inheriting stdio (spec §4.5 step 5); a non-zero exit is fatal for this manifest.
func (r *Reconciler) runPackageInstaller(ctx context.Context, projectDir string) error {
	cmd := exec.CommandContext(ctx, "npm", "install")
	cmd.Dir = projectDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "npm install", err)
	}
	return nil
}

// reconcileUnit renders and writes the application unit, its watcher
// script, and the watcher's own unit, then reloads and enables both units
// (spec §4.5 step 6).
func (r *Reconciler) reconcileUnit(ctx context.Context, serviceID, projectDir string, m manifest.ProjectManifest) error {
	unitText := render.UnitFile("Artisan-managed service "+serviceID, m.ServiceSettings, m.ExecPreAsRoot)
	unitPath := filepath.Join(r.cfg.UnitDir, serviceID+".service")
	if err := os.WriteFile(unitPath, []byte(unitText), 0o644); err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "write unit file", err)
	}

	scriptPath := filepath.Join(r.cfg.WatchDir, serviceID+".monitor")
	scriptText := render.WatcherScript(projectDir, serviceID, render.DefaultCooldownSeconds)
	if err := os.WriteFile(scriptPath, []byte(scriptText), 0o755); err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "write watcher script", err)
	}

	watcherUnitText := render.WatcherUnitFile(serviceID, scriptPath)
	watcherUnitPath := filepath.Join(r.cfg.UnitDir, serviceID+"_monitor.service")
	if err := os.WriteFile(watcherUnitPath, []byte(watcherUnitText), 0o644); err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "write watcher unit file", err)
	}

	if err := r.init.ReloadDaemon(ctx); err != nil {
		return err
	}
	if err := r.init.Enable(ctx, serviceID+".service", true); err != nil {
		return err
	}
	if err := r.init.Enable(ctx, serviceID+"_monitor.service", true); err != nil {
		return err
	}
	return nil
}

func (r *Reconciler) postStatus(ctx context.Context, status statusmodel.AppStatus) {
	record := statusmodel.StatusRecord{
		App:         statusmodel.Directive,
		Status:      status,
		WallSeconds: uint64(time.Now().Unix()),
		Version:     r.cfg.LocalVersion,
	}
	if err := r.agg.PostStatus(ctx, record); err != nil {
		r.logger.WithError(err).Debug("post status to aggregator failed")
	}
}
