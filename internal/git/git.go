package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Client provides the git operations needed for hook synchronization
type Client interface {
	// TopLevel returns the absolute path of the working tree root containing dir
	TopLevel(ctx context.Context, dir string) (string, error)
	// GitDir returns the absolute path of the repository's git directory
	GitDir(ctx context.Context, dir string) (string, error)
	// CloneShallow performs a depth-limited clone of ref into destDir
	CloneShallow(ctx context.Context, url, ref, destDir string, depth int) error
	// StagedDiff returns the diff of the index against HEAD
	StagedDiff(ctx context.Context, dir string) (string, error)
}

// ShellClient implements Client by shelling out to the git command
type ShellClient struct{}

// NewShellClient creates a new git client that uses the git command
func NewShellClient() *ShellClient {
	return &ShellClient{}
}

// TopLevel returns the absolute path of the working tree root containing dir
func (c *ShellClient) TopLevel(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// GitDir returns the absolute path of the repository's git directory
func (c *ShellClient) GitDir(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--absolute-git-dir")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --absolute-git-dir failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CloneShallow clones url at ref into destDir with the given history depth.
// The clone never prompts for credentials; an unreachable or authenticated
// remote fails fast instead of hanging on a terminal prompt.
func (c *ShellClient) CloneShallow(ctx context.Context, url, ref, destDir string, depth int) error {
	if depth < 1 {
		depth = 1
	}

	args := []string{"clone", "--quiet", "--depth", strconv.Itoa(depth), "--single-branch"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, url, destDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

// StagedDiff returns the diff of the index against HEAD
func (c *ShellClient) StagedDiff(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "diff", "--cached")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff --cached failed: %w", err)
	}
	return string(output), nil
}

// runCommand executes a command and returns an error with combined output on failure
func runCommand(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
