package reconciler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverManifestsFindsNestedFiles(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "site-a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "site-b", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "site-a", "directive.ais"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "site-b", "nested", "directive.ais"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "site-b", "README.md"), []byte("not a manifest"), 0o644))

	found, err := discoverManifests(base, "directive.ais")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestDiscoverManifestsFollowsSymlinkWithoutLooping(t *testing.T) {
	base := t.TempDir()
	real := filepath.Join(base, "real")
	require.NoError(t, os.MkdirAll(real, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(real, "directive.ais"), []byte("{}"), 0o644))

	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(real, link))

	selfLoop := filepath.Join(real, "loop")
	require.NoError(t, os.Symlink(real, selfLoop))

	found, err := discoverManifests(base, "directive.ais")
	require.NoError(t, err)
	assert.Len(t, found, 1, "a symlink cycle back to an already-visited directory must not be walked twice")
}

func TestReconcileVhostWritesOnFirstPassThenIsIdempotent(t *testing.T) {
	vhostDir := t.TempDir()
	r := &Reconciler{cfg: Config{VhostDir: vhostDir}}

	m := manifest.ProjectManifest{URL: "example.test", Port: 8080}
	projectDir := t.TempDir()

	dirty, err := r.reconcileVhost(projectDir, m)
	require.NoError(t, err)
	assert.True(t, dirty)

	dirty, err = r.reconcileVhost(projectDir, m)
	require.NoError(t, err)
	assert.False(t, dirty, "an unchanged manifest must not rewrite the vhost file")
}

func TestReconcileVhostRewritesOnPortChange(t *testing.T) {
	vhostDir := t.TempDir()
	r := &Reconciler{cfg: Config{VhostDir: vhostDir}}
	projectDir := t.TempDir()

	m := manifest.ProjectManifest{URL: "example.test", Port: 8080}
	_, err := r.reconcileVhost(projectDir, m)
	require.NoError(t, err)

	m.Port = 8081
	dirty, err := r.reconcileVhost(projectDir, m)
	require.NoError(t, err)
	assert.True(t, dirty)
}
