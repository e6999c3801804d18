package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Git runs a git command in dir, failing the test on error.
func Git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmdArgs := append([]string{"-C", dir}, args...)
	if out, err := exec.Command("git", cmdArgs...).CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
}

// InitRepo initializes a git repository with commit identity configured.
func InitRepo(t *testing.T, dir string) {
	t.Helper()
	if out, err := exec.Command("git", "init", "-b", "main", dir).CombinedOutput(); err != nil {
		t.Fatalf("git init: %v: %s", err, out)
	}
	Git(t, dir, "config", "user.email", "test@test.com")
	Git(t, dir, "config", "user.name", "Test")
}

// WriteBundle writes a complete hook bundle (the three hook scripts plus the
// version descriptor) into dir, creating it if needed.
func WriteBundle(t *testing.T, dir, version string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"pre-commit", "pre-push", "commit-msg"} {
		script := "#!/bin/sh\necho " + name + " " + version + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "VERSION"), []byte(version+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

// CommitAll stages and commits everything in the repository at dir.
func CommitAll(t *testing.T, dir, msg string) {
	t.Helper()
	Git(t, dir, "add", "-A")
	Git(t, dir, "commit", "-m", msg)
}
