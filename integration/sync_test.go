//go:build integration

package integration

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/schwitzd/hooksync/internal/config"
	"github.com/schwitzd/hooksync/internal/git"
	"github.com/schwitzd/hooksync/internal/source"
	"github.com/schwitzd/hooksync/internal/state"
	"github.com/schwitzd/hooksync/internal/testutil"
	"github.com/schwitzd/hooksync/internal/updater"
)

// debounceWait sleeps long enough for the 1-second test debounce window to
// expire; the window is measured in whole unix seconds.
func debounceWait() {
	time.Sleep(2 * time.Second)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupSourceRepo creates an authoritative hook repository with a committed
// bundle at the given version.
func setupSourceRepo(t *testing.T, version string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	testutil.WriteBundle(t, dir, version)
	testutil.CommitAll(t, dir, "bundle "+version)
	return dir
}

// setupConsumerRepo creates an empty consumer repository and returns its
// symlink-resolved root.
func setupConsumerRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func newUpdater(t *testing.T, cfg *config.Config, workDir string) *updater.Updater {
	t.Helper()
	logger := testLogger()
	gitClient := git.NewShellClient()
	resolver := source.NewGitResolver(cfg, gitClient, logger)
	return updater.New(cfg, gitClient, resolver, logger, workDir)
}

func readMarker(t *testing.T, repoRoot string) *state.Marker {
	t.Helper()
	store := state.NewStore(filepath.Join(repoRoot, ".git", "hooks", state.FileName))
	m, err := store.Read()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func stagingDirs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "hooksync-*"))
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}

func TestEndToEnd_InstallUpdateConverge(t *testing.T) {
	ctx := context.Background()

	sourceRepo := setupSourceRepo(t, "1.0.0")
	consumer := setupConsumerRepo(t)

	cfg := config.Default()
	cfg.Source.URL = sourceRepo
	cfg.Source.Ref = "main"
	cfg.Sync.DebounceSeconds = 1

	stagingBefore := stagingDirs(t)
	u := newUpdater(t, cfg, consumer)

	// First run installs.
	res := u.Run(ctx, false)
	if res.Outcome != updater.Installed || res.Version != "1.0.0" {
		t.Fatalf("first run = %+v, want Installed 1.0.0", res)
	}
	hookPath := filepath.Join(consumer, ".git", "hooks", "pre-commit")
	if info, err := os.Stat(hookPath); err != nil || info.Mode().Perm()&0111 == 0 {
		t.Fatalf("pre-commit not installed executable: %v", err)
	}
	if m := readMarker(t, consumer); m == nil || m.Version != "1.0.0" {
		t.Fatalf("marker = %+v", m)
	}

	// Source publishes a new version.
	testutil.WriteBundle(t, sourceRepo, "1.1.0")
	testutil.CommitAll(t, sourceRepo, "bundle 1.1.0")

	debounceWait()
	res = u.Run(ctx, false)
	if res.Outcome != updater.Updated || res.Version != "1.1.0" {
		t.Fatalf("second run = %+v, want Updated 1.1.0", res)
	}

	// No further change: converged.
	debounceWait()
	res = u.Run(ctx, false)
	if res.Outcome != updater.UpToDate || res.Version != "1.1.0" {
		t.Fatalf("third run = %+v, want UpToDate 1.1.0", res)
	}

	// Every temporary clone was cleaned up.
	if after := stagingDirs(t); after != stagingBefore {
		t.Errorf("staging directories leaked: before=%d after=%d", stagingBefore, after)
	}
}

func TestEndToEnd_HookContextInstallsButNeverUpdates(t *testing.T) {
	ctx := context.Background()

	sourceRepo := setupSourceRepo(t, "1.0.0")
	consumer := setupConsumerRepo(t)

	cfg := config.Default()
	cfg.Source.URL = sourceRepo
	cfg.Source.Ref = "main"
	cfg.Sync.DebounceSeconds = 1

	u := newUpdater(t, cfg, consumer)

	// Fresh install from hook context signals re-dispatch.
	if res := u.Run(ctx, true); res.Outcome != updater.Installed {
		t.Fatalf("in-hook fresh install = %+v, want Installed", res)
	}

	// Source moves on, but a hook-context run must not follow.
	testutil.WriteBundle(t, sourceRepo, "2.0.0")
	testutil.CommitAll(t, sourceRepo, "bundle 2.0.0")

	before, err := os.ReadFile(filepath.Join(consumer, ".git", "hooks", "pre-commit"))
	if err != nil {
		t.Fatal(err)
	}

	debounceWait()
	if res := u.Run(ctx, true); res.Outcome != updater.UpToDate {
		t.Fatalf("in-hook run on stale repo = %+v, want UpToDate", res)
	}

	after, err := os.ReadFile(filepath.Join(consumer, ".git", "hooks", "pre-commit"))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("hook-context run modified the installed bundle")
	}
	if m := readMarker(t, consumer); m.Version != "1.0.0" {
		t.Errorf("marker version = %q, want 1.0.0", m.Version)
	}
}

func TestEndToEnd_SiblingCheckoutPreferred(t *testing.T) {
	ctx := context.Background()

	sourceRepo := setupSourceRepo(t, "3.0.0")
	consumer := setupConsumerRepo(t)

	cfg := config.Default()
	// Unreachable URL: only the sibling can serve the bundle.
	cfg.Source.URL = filepath.Join(t.TempDir(), "does-not-exist")
	cfg.Source.SiblingPath = sourceRepo
	cfg.Sync.DebounceSeconds = 1

	u := newUpdater(t, cfg, consumer)

	res := u.Run(ctx, false)
	if res.Outcome != updater.Installed || res.Version != "3.0.0" {
		t.Fatalf("run = %+v, want Installed 3.0.0 from sibling", res)
	}
}

func TestEndToEnd_UnreachableSourceDegradesToNoop(t *testing.T) {
	ctx := context.Background()

	consumer := setupConsumerRepo(t)

	cfg := config.Default()
	cfg.Source.URL = filepath.Join(t.TempDir(), "does-not-exist")
	cfg.Sync.DebounceSeconds = 1
	cfg.Sync.CloneTimeoutSeconds = 5

	u := newUpdater(t, cfg, consumer)

	res := u.Run(ctx, false)
	if res.Outcome != updater.Skipped {
		t.Fatalf("run = %+v, want Skipped for unreachable source", res)
	}

	// The failed attempt is stamped but the never-installed invariant holds.
	m := readMarker(t, consumer)
	if m == nil || m.Version != "" {
		t.Fatalf("marker = %+v, want empty version", m)
	}
}
