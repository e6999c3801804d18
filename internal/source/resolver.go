package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schwitzd/hooksync/internal/bundle"
	"github.com/schwitzd/hooksync/internal/config"
	"github.com/schwitzd/hooksync/internal/git"
)

// ErrNoSource indicates that neither a sibling checkout nor a remote URL is
// configured, so there is nothing to resolve.
var ErrNoSource = errors.New("no hook bundle source configured")

// Checkout is a readable copy of the authoritative bundle. Callers must call
// Close when done; for a temporary clone this removes the staging directory,
// for a sibling checkout it is a no-op.
type Checkout struct {
	// Dir is the directory containing the bundle files
	Dir string
	// Version is the bundle's version descriptor
	Version string

	staging string // temp root to remove; empty for sibling checkouts
}

// Temporary reports whether the checkout lives in an ephemeral staging
// directory.
func (c *Checkout) Temporary() bool {
	return c.staging != ""
}

// Close releases the checkout. Safe to call more than once.
func (c *Checkout) Close() error {
	if c.staging == "" {
		return nil
	}
	staging := c.staging
	c.staging = ""
	return os.RemoveAll(staging)
}

// Resolver locates a readable copy of the authoritative hook bundle
type Resolver interface {
	// Resolve returns a checkout of the bundle for the repository rooted at
	// repoRoot. The caller owns the returned checkout and must Close it.
	Resolve(ctx context.Context, repoRoot string) (*Checkout, error)
}

// GitResolver resolves the bundle local-first: a sibling checkout on disk is
// preferred, a shallow temporary clone is the fallback.
type GitResolver struct {
	cfg    *config.Config
	git    git.Client
	logger *slog.Logger
}

// NewGitResolver creates a resolver using the given git client
func NewGitResolver(cfg *config.Config, gitClient git.Client, logger *slog.Logger) *GitResolver {
	return &GitResolver{
		cfg:    cfg,
		git:    gitClient,
		logger: logger,
	}
}

// Resolve locates the bundle. The sibling checkout wins unconditionally when
// it is present and complete, even if a reachable remote has a different
// version. On the clone path the staging directory is removed before
// returning on every failure; only a successful resolve hands ownership of
// the staging directory to the caller via Checkout.Close.
func (r *GitResolver) Resolve(ctx context.Context, repoRoot string) (*Checkout, error) {
	if !r.cfg.HasSource() {
		return nil, ErrNoSource
	}

	// Fast path: local sibling checkout, read-only, no network.
	if sibling := r.cfg.Source.SiblingPath; sibling != "" {
		if !filepath.IsAbs(sibling) {
			sibling = filepath.Join(repoRoot, sibling)
		}
		dir := r.bundleDir(sibling)

		if err := bundle.Verify(dir); err == nil {
			version, verr := bundle.ReadVersion(dir)
			if verr == nil {
				r.logger.Debug("using sibling checkout", "dir", dir, "version", version)
				return &Checkout{Dir: dir, Version: version}, nil
			}
			r.logger.Debug("sibling checkout has unreadable version descriptor", "dir", dir, "error", verr)
		} else {
			r.logger.Debug("sibling checkout not usable", "dir", dir, "error", err)
		}
	}

	if r.cfg.Source.URL == "" {
		return nil, ErrNoSource
	}

	return r.cloneTemp(ctx)
}

// cloneTemp performs a shallow clone into an isolated staging directory.
func (r *GitResolver) cloneTemp(ctx context.Context) (_ *Checkout, err error) {
	staging, err := os.MkdirTemp("", "hooksync-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging)
		}
	}()

	cloneCtx, cancel := context.WithTimeout(ctx, r.cfg.CloneTimeout())
	defer cancel()

	dest := filepath.Join(staging, "src")
	r.logger.Debug("cloning hook source",
		"url", r.cfg.Source.URL,
		"ref", r.cfg.Source.Ref,
		"depth", r.cfg.Sync.CloneDepth)

	if err = r.git.CloneShallow(cloneCtx, r.cfg.Source.URL, r.cfg.Source.Ref, dest, r.cfg.Sync.CloneDepth); err != nil {
		return nil, fmt.Errorf("failed to fetch hook source: %w", err)
	}

	dir := r.bundleDir(dest)
	if err = bundle.Verify(dir); err != nil {
		return nil, fmt.Errorf("fetched source has no complete bundle: %w", err)
	}

	version, err := bundle.ReadVersion(dir)
	if err != nil {
		return nil, err
	}

	return &Checkout{Dir: dir, Version: version, staging: staging}, nil
}

// bundleDir returns the bundle location inside a source checkout.
func (r *GitResolver) bundleDir(checkoutDir string) string {
	if r.cfg.Source.Subdir == "" {
		return checkoutDir
	}
	return filepath.Join(checkoutDir, r.cfg.Source.Subdir)
}
