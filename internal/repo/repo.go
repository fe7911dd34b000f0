// Package repo wraps source-control CLI actions with timeouts (spec §4.8
// context, C8), used by the Sync loop (C11) to clone/fetch/pull working
// trees and inspect whether a pull applied new commits.
package repo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 2 * time.Minute

// UpToDateMarker is the literal phrase spec §4.6 step 4c uses to detect a no-op pull.
const UpToDateMarker = "Already up to date."

// Driver runs git commands against one working tree.
type Driver struct {
	dir     string
	timeout time.Duration
	runner  func(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)
}

// New constructs a Driver rooted at dir.
func New(dir string) *Driver {
	return &Driver{dir: dir, timeout: DefaultTimeout, runner: runGit}
}

func runGit(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (d *Driver) run(ctx context.Context, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.runner(ctx, d.dir, args...)
}

// Clone clones url into dir (dir must not yet exist; git creates it).
func Clone(ctx context.Context, url, dir string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, stderr, err := runGit(ctx, "", "clone", url, dir)
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, fmt.Sprintf("git clone %s: %s", url, stderr), err)
	}
	return nil
}

// MarkSafe authorizes git operations against a working tree owned by a
// different OS user (spec §4.6 step 4a / GLOSSARY "safe directory"), a
// one-time idempotent operation per tree.
func (d *Driver) MarkSafe(ctx context.Context) error {
	ctx2, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	_, stderr, err := d.runner(ctx2, "", "config", "--global", "--add", "safe.directory", d.dir)
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "git config safe.directory: "+stderr, err)
	}
	return nil
}

// IsSafeDirectoryError reports whether stderr indicates git's "unsafe
// repository" error, prompting a one-time MarkSafe retry (spec §4.6 step 5).
func IsSafeDirectoryError(stderr string) bool {
	return bytesContains(stderr, "detected dubious ownership") || bytesContains(stderr, "safe.directory")
}

func bytesContains(s, substr string) bool {
	return len(s) >= len(substr) && (len(substr) == 0 || indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// Fetch runs `git fetch` to populate tracking metadata.
func (d *Driver) Fetch(ctx context.Context) error {
	_, stderr, err := d.run(ctx, "fetch")
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "git fetch: "+stderr, err)
	}
	return nil
}

// Pull runs `git pull origin <branch>` and reports changed=false when stdout
// contains the up-to-date marker, true otherwise (spec §4.6 step 4c).
func (d *Driver) Pull(ctx context.Context, branch string) (changed bool, err error) {
	stdout, stderr, runErr := d.run(ctx, "pull", "origin", branch)
	if runErr != nil {
		return false, ferrors.Wrap(ferrors.KindExternalTool, "git pull: "+stderr, runErr)
	}
	return !containsMarker(stdout), nil
}

func containsMarker(stdout string) bool {
	return indexOf(stdout, UpToDateMarker) >= 0
}

// ConfigureTracking sets up the local branch to track origin/<branch>
// (spec §4.6 step 4d).
func (d *Driver) ConfigureTracking(ctx context.Context, branch string) error {
	_, stderr, err := d.run(ctx, "branch", "--set-upstream-to=origin/"+branch, branch)
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "git branch --set-upstream-to: "+stderr, err)
	}
	return nil
}

// Switch checks out branch.
func (d *Driver) Switch(ctx context.Context, branch string) error {
	_, stderr, err := d.run(ctx, "switch", branch)
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "git switch: "+stderr, err)
	}
	return nil
}

// Chown recursively changes ownership of dir to user:group (spec §4.6 step 3b).
func Chown(dir, userGroup string) error {
	cmd := exec.Command("chown", "-R", userGroup, dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "chown: "+string(out), err)
	}
	return nil
}

// Exists reports whether dir exists on disk.
func Exists(dir string) bool {
	_, err := os.Stat(dir)
	return err == nil
}
