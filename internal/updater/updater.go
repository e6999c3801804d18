package updater

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/schwitzd/hooksync/internal/bundle"
	"github.com/schwitzd/hooksync/internal/config"
	"github.com/schwitzd/hooksync/internal/git"
	"github.com/schwitzd/hooksync/internal/probe"
	"github.com/schwitzd/hooksync/internal/source"
	"github.com/schwitzd/hooksync/internal/state"
)

// Updater reconciles the installed hook bundle against the authoritative
// source. Failures on the synchronization path are converted into
// non-blocking outcomes: a broken source must never be the reason a commit
// or push is rejected.
type Updater struct {
	cfg      *config.Config
	git      git.Client
	resolver source.Resolver
	logger   *slog.Logger
	workDir  string

	// overridable for tests
	now     func() time.Time
	probeFn func() []probe.Capability
}

// New creates an updater operating on the repository at workDir
func New(cfg *config.Config, gitClient git.Client, resolver source.Resolver, logger *slog.Logger, workDir string) *Updater {
	return &Updater{
		cfg:      cfg,
		git:      gitClient,
		resolver: resolver,
		logger:   logger,
		workDir:  workDir,
		now:      time.Now,
		probeFn:  probe.Check,
	}
}

// Run executes one synchronization pass. inHook must be true when the call
// originates from inside a hook invocation: in that mode an already
// installed bundle is never compared against the source, let alone
// overwritten, because the executing hook file must not replace itself
// mid-run. Version drift is reconciled only from interactive runs.
func (u *Updater) Run(ctx context.Context, inHook bool) Result {
	// Guard: only act at a repository root.
	root, err := u.git.TopLevel(ctx, u.workDir)
	if err != nil {
		return Result{Outcome: Skipped, Reason: "not inside a git repository"}
	}
	if !sameDir(root, u.workDir) {
		return Result{Outcome: Skipped, Reason: "not at the repository root"}
	}

	gitDir, err := u.git.GitDir(ctx, u.workDir)
	if err != nil {
		return Result{Outcome: Skipped, Reason: "cannot locate git directory"}
	}
	hookDir := filepath.Join(gitDir, "hooks")
	store := state.NewStore(filepath.Join(hookDir, state.FileName))

	marker, err := store.Read()
	if err != nil {
		// A corrupt marker is treated as never-installed; the next
		// successful install rewrites it.
		u.logger.Warn("unreadable sync marker, treating as fresh install", "error", err)
		marker = nil
	}

	// Debounce: absorb bursts of invocations from multi-module builds.
	// A debounced run leaves the marker untouched.
	if marker != nil && marker.LastSyncEpoch > 0 {
		elapsed := u.now().Unix() - marker.LastSyncEpoch
		if elapsed >= 0 && elapsed < int64(u.cfg.DebounceWindow().Seconds()) {
			return Result{Outcome: Skipped, Version: marker.Version, Reason: "synced recently"}
		}
	}

	installedVersion := ""
	if marker != nil {
		installedVersion = marker.Version
	}

	res, version := u.reconcile(ctx, root, hookDir, installedVersion, inHook)

	// Every run that got past the debounce check stamps the sync time,
	// success or failure, to cap the retry frequency of failing syncs.
	// The version field always reflects what is actually installed, so an
	// empty version keeps meaning "never installed".
	if err := store.Write(&state.Marker{Version: version, LastSyncEpoch: u.now().Unix()}); err != nil {
		u.logger.Warn("failed to write sync marker", "error", err)
	}

	return res
}

// reconcile performs the install/update decision. It returns the run result
// and the bundle version now installed (empty when none is).
func (u *Updater) reconcile(ctx context.Context, root, hookDir, installedVersion string, inHook bool) (Result, string) {
	// Fresh install
	if installedVersion == "" {
		co, err := u.resolver.Resolve(ctx, root)
		if err != nil {
			u.logger.Warn("hook source unavailable, skipping install", "error", err)
			return Result{Outcome: Skipped, Reason: "hook source unavailable"}, ""
		}
		defer func() {
			_ = co.Close()
		}()

		if err := bundle.Install(co.Dir, hookDir); err != nil {
			u.logger.Warn("hook install failed, prior state preserved", "error", err)
			return Result{Outcome: Skipped, Reason: "install failed"}, ""
		}

		u.logger.Info("hook bundle installed", "version", co.Version, "dir", hookDir)
		u.reportCapabilities()
		return Result{Outcome: Installed, Version: co.Version}, co.Version
	}

	// Installed, running from inside a hook: never touch the bundle.
	if inHook {
		return Result{Outcome: UpToDate, Version: installedVersion}, installedVersion
	}

	// Installed, interactive: reconcile against the source.
	co, err := u.resolver.Resolve(ctx, root)
	if err != nil {
		u.logger.Warn("hook source unavailable, keeping installed bundle", "error", err)
		return Result{
			Outcome: UpToDate,
			Version: installedVersion,
			Reason:  "hook source unavailable",
		}, installedVersion
	}
	defer func() {
		_ = co.Close()
	}()

	if co.Version == installedVersion {
		return Result{Outcome: UpToDate, Version: installedVersion}, installedVersion
	}

	if err := bundle.Install(co.Dir, hookDir); err != nil {
		u.logger.Warn("hook update failed, prior bundle preserved", "error", err)
		return Result{
			Outcome: UpToDate,
			Version: installedVersion,
			Reason:  "update failed",
		}, installedVersion
	}

	u.logger.Info("hook bundle updated",
		"from", installedVersion,
		"to", co.Version)
	return Result{Outcome: Updated, Version: co.Version}, co.Version
}

// sameDir compares two paths after resolving symlinks; git reports resolved
// paths while the working directory may be a symlinked alias.
func sameDir(a, b string) bool {
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		ra = filepath.Clean(a)
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		rb = filepath.Clean(b)
	}
	return ra == rb
}

// reportCapabilities emits one advisory status line per optional tool.
func (u *Updater) reportCapabilities() {
	for _, c := range u.probeFn() {
		if c.Found {
			u.logger.Info("capability present", "name", c.Name, "detail", c.Detail)
		} else {
			u.logger.Warn("capability missing", "name", c.Name, "detail", c.Detail)
		}
	}
}
