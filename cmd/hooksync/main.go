package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/schwitzd/hooksync/internal/bootstrap"
	"github.com/schwitzd/hooksync/internal/bundle"
	"github.com/schwitzd/hooksync/internal/config"
	"github.com/schwitzd/hooksync/internal/git"
	"github.com/schwitzd/hooksync/internal/probe"
	"github.com/schwitzd/hooksync/internal/review"
	"github.com/schwitzd/hooksync/internal/source"
	"github.com/schwitzd/hooksync/internal/updater"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// exitRedispatch is the reserved sentinel: the bundle was installed inside
// the current hook invocation and the caller must re-invoke the freshly
// installed hook. It is consumed by the bootstrap shim and must never reach
// the native git runner as a blocking failure.
const exitRedispatch = 100

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Exit code emitted after a successful Execute; only the hook command
	// sets it to something other than zero.
	exitCode int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:   "hooksync",
	Short: "Distribute and synchronize git hooks from an authoritative source",
	Long: `hooksync keeps a versioned bundle of git hooks (pre-commit, pre-push,
commit-msg) synchronized from one authoritative git repository into the hook
directory of the current repository.

Synchronization never blocks a legitimate commit or push: when the source is
unreachable or an install fails, the run degrades to a no-op and the prior
hook set stays in place.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the installed hook bundle against the source",
	Long: `Sync resolves the authoritative hook bundle (a local sibling checkout when
present, otherwise a shallow temporary clone), compares its version descriptor
with the installed one, and installs or updates the bundle atomically.

This is the interactive entry point; version drift is only ever reconciled
here, never from inside a running hook.`,
	RunE: runSync,
}

var hookCmd = &cobra.Command{
	Use:   "hook <name> [args...]",
	Short: "Hook-context entry point, invoked by the bootstrap shim",
	Long: `Hook runs one synchronization pass in hook context: a first-time install is
performed and signalled with exit code 100 so the shim re-dispatches to the
freshly installed hook; an already installed bundle is left untouched, even
when stale, because the executing hook must never overwrite itself.

All synchronization failures exit 0. Trailing arguments are the native hook
arguments and are accepted for the shim's convenience.`,
	Args:               cobra.MinimumNArgs(1),
	DisableFlagParsing: true,
	RunE:               runHook,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Write the bootstrap shim scripts into the hook directory",
	Long: `Bootstrap writes a minimal shim for each managed hook name into the
repository's hook directory. The shims delegate to hooksync and are replaced
by the real bundle on the next hook invocation or sync. Existing hooks that
are not hooksync shims are left alone.`,
	RunE: runBootstrap,
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run the advisory review gate over the staged diff",
	Long: `Review feeds the staged diff (truncated to the configured line limit) to the
review subprocess and applies the configured minimum score. On subprocess
timeout, crash or malformed output the fail-open/fail-closed policy decides
the exit code instead of an error.`,
	RunE: runReview,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report the status of optional external tooling",
	Run:   runDoctor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hooksync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .hooksync.yaml at the repository root)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "log format (auto, text, json, pretty)")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	workDir, cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	u := newUpdater(cfg, logger, workDir)
	res := u.Run(ctx, false)

	if res.Reason != "" {
		logger.Info("sync finished", "outcome", res.Outcome.String(), "version", res.Version, "reason", res.Reason)
	} else {
		logger.Info("sync finished", "outcome", res.Outcome.String(), "version", res.Version)
	}

	if res.Outcome == updater.Failed {
		return fmt.Errorf("sync failed: %s", res.Reason)
	}
	return nil
}

func runHook(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	name := args[0]
	if !bundle.IsHookName(name) {
		// Unknown hook names are allowed through; blocking here would turn a
		// shim misconfiguration into a broken repository.
		logger.Warn("unmanaged hook name, allowing", "hook", name)
		return nil
	}

	workDir, cfg, err := loadConfig(logger)
	if err != nil {
		// A broken config must not block the git operation.
		logger.Warn("configuration unavailable, allowing", "error", err)
		return nil
	}

	u := newUpdater(cfg, logger, workDir)
	res := u.Run(ctx, true)

	logger.Debug("hook sync finished", "hook", name, "outcome", res.Outcome.String(), "version", res.Version)

	if res.Outcome == updater.Installed {
		exitCode = exitRedispatch
	}
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	gitClient := git.NewShellClient()
	gitDir, err := gitClient.GitDir(ctx, workDir)
	if err != nil {
		return fmt.Errorf("not inside a git repository: %w", err)
	}

	hookDir := filepath.Join(gitDir, "hooks")
	written, err := bootstrap.Install(hookDir)
	if err != nil {
		return err
	}

	if len(written) == 0 {
		logger.Info("all hooks already present, nothing written", "dir", hookDir)
		return nil
	}
	for _, name := range written {
		logger.Info("wrote bootstrap shim", "hook", name, "dir", hookDir)
	}
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	workDir, cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	gitClient := git.NewShellClient()
	diff, err := gitClient.StagedDiff(ctx, workDir)
	if err != nil {
		return fmt.Errorf("failed to read staged changes: %w", err)
	}

	runner := review.NewRunner(cfg, logger)
	decision := runner.Run(ctx, diff)

	if decision.Verdict != nil {
		logger.Info("review verdict",
			"score", decision.Verdict.Score,
			"pass", decision.Verdict.Pass,
			"issues", len(decision.Verdict.Issues),
			"summary", decision.Verdict.Summary)
	}

	if !decision.Allow {
		return fmt.Errorf("review gate blocked: %s", decision.Reason)
	}
	logger.Info("review gate passed", "reason", decision.Reason)
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) {
	for _, c := range probe.Check() {
		status := "missing"
		if c.Found {
			status = "ok"
		}
		fmt.Printf("%-22s %-8s %s\n", c.Name, status, c.Detail)
	}
}

// newUpdater wires the production collaborators together.
func newUpdater(cfg *config.Config, logger *slog.Logger, workDir string) *updater.Updater {
	gitClient := git.NewShellClient()
	resolver := source.NewGitResolver(cfg, gitClient, logger)
	return updater.New(cfg, gitClient, resolver, logger, workDir)
}

// loadConfig loads the repository config relative to the current working
// directory, falling back to defaults when no file is present.
func loadConfig(logger *slog.Logger) (string, *config.Config, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	configPath := cfgFile
	if configPath == "" {
		configPath = filepath.Join(workDir, config.FileName)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Debug("configuration loaded",
		"path", configPath,
		"source_url", cfg.Source.URL,
		"sibling_path", cfg.Source.SiblingPath,
		"debounce_seconds", cfg.Sync.DebounceSeconds)

	return workDir, cfg, nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	format := logFormat
	if format == "auto" {
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "pretty"
		} else {
			format = "text"
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "pretty":
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
