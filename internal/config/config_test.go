package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Sync.DebounceSeconds != 60 {
		t.Errorf("debounce = %d, want 60", cfg.Sync.DebounceSeconds)
	}
	if cfg.Sync.CloneDepth != 1 {
		t.Errorf("clone depth = %d, want 1", cfg.Sync.CloneDepth)
	}
	if cfg.Review.MinScore != 70 {
		t.Errorf("min score = %d, want 70", cfg.Review.MinScore)
	}
	if cfg.Review.TimeoutSeconds != 120 {
		t.Errorf("review timeout = %d, want 120", cfg.Review.TimeoutSeconds)
	}
	if cfg.Review.MaxLines != 2000 {
		t.Errorf("max lines = %d, want 2000", cfg.Review.MaxLines)
	}
	if cfg.Review.Disabled {
		t.Error("review should be enabled by default")
	}
	if cfg.Review.FailPolicy != FailOpen {
		t.Errorf("fail policy = %q, want open", cfg.Review.FailPolicy)
	}
	if cfg.HasSource() {
		t.Error("default config should have no source")
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
source:
  url: "git@example.com:acme/git-hooks.git"
  ref: "main"
  subdir: "hooks"
  sibling_path: "../git-hooks"
sync:
  debounce_seconds: 30
  clone_timeout_seconds: 10
  clone_depth: 2
review:
  disabled: true
  min_score: 80
  fail_policy: "closed"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Source.URL != "git@example.com:acme/git-hooks.git" {
		t.Errorf("url = %q", cfg.Source.URL)
	}
	if cfg.Source.SiblingPath != "../git-hooks" {
		t.Errorf("sibling_path = %q", cfg.Source.SiblingPath)
	}
	if cfg.DebounceWindow() != 30*time.Second {
		t.Errorf("debounce window = %v", cfg.DebounceWindow())
	}
	if cfg.CloneTimeout() != 10*time.Second {
		t.Errorf("clone timeout = %v", cfg.CloneTimeout())
	}
	if !cfg.Review.Disabled {
		t.Error("review should be disabled")
	}
	if cfg.Review.MinScore != 80 {
		t.Errorf("min score = %d", cfg.Review.MinScore)
	}
	if cfg.Review.FailPolicy != FailClosed {
		t.Errorf("fail policy = %q", cfg.Review.FailPolicy)
	}
	// Unset fields still get defaults
	if cfg.Review.MaxLines != 2000 {
		t.Errorf("max lines = %d, want default 2000", cfg.Review.MaxLines)
	}
	if !cfg.HasSource() {
		t.Error("HasSource should be true")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "source: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{name: "negative debounce", content: "sync:\n  debounce_seconds: -5\n"},
		{name: "bad fail policy", content: "review:\n  fail_policy: maybe\n"},
		{name: "score too high", content: "review:\n  min_score: 150\n"},
		{name: "negative max lines", content: "review:\n  max_lines: -1\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvReviewDisabled, "true")
	t.Setenv(EnvReviewMinScore, "90")
	t.Setenv(EnvReviewTimeout, "15")
	t.Setenv(EnvReviewMaxLines, "500")
	t.Setenv(EnvReviewFailPolicy, "closed")

	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.Review.Disabled {
		t.Error("env override should disable review")
	}
	if cfg.Review.MinScore != 90 {
		t.Errorf("min score = %d, want 90", cfg.Review.MinScore)
	}
	if cfg.Review.TimeoutSeconds != 15 {
		t.Errorf("timeout = %d, want 15", cfg.Review.TimeoutSeconds)
	}
	if cfg.Review.MaxLines != 500 {
		t.Errorf("max lines = %d, want 500", cfg.Review.MaxLines)
	}
	if cfg.Review.FailPolicy != FailClosed {
		t.Errorf("fail policy = %q, want closed", cfg.Review.FailPolicy)
	}
}

func TestLoad_EnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv(EnvReviewMinScore, "lots")
	t.Setenv(EnvReviewFailPolicy, "sometimes")

	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Review.MinScore != 70 {
		t.Errorf("min score = %d, want default 70", cfg.Review.MinScore)
	}
	if cfg.Review.FailPolicy != FailOpen {
		t.Errorf("fail policy = %q, want default open", cfg.Review.FailPolicy)
	}
}

func TestLoad_ExpandsEnvInPaths(t *testing.T) {
	t.Setenv("HOOKS_REPO", "/srv/git-hooks")
	path := writeConfig(t, "source:\n  sibling_path: \"$HOOKS_REPO\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.SiblingPath != "/srv/git-hooks" {
		t.Errorf("sibling_path = %q", cfg.Source.SiblingPath)
	}
}
