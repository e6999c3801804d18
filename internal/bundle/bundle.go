package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Manifest is the fixed set of hook scripts that make up a bundle.
// Installation copies exactly these names and nothing else; a stray file in
// the source tree is never picked up by accident.
var Manifest = []string{
	"pre-commit",
	"pre-push",
	"commit-msg",
}

// VersionFile is the descriptor file distributed alongside the hook scripts.
// Its trimmed content is an opaque version string compared by exact equality.
const VersionFile = "VERSION"

// IsHookName returns true if name is part of the bundle manifest.
func IsHookName(name string) bool {
	for _, h := range Manifest {
		if h == name {
			return true
		}
	}
	return false
}

// ReadVersion reads the version descriptor from a bundle directory.
func ReadVersion(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, VersionFile))
	if err != nil {
		return "", fmt.Errorf("failed to read version descriptor: %w", err)
	}

	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", fmt.Errorf("version descriptor %s is empty", VersionFile)
	}

	return version, nil
}

// Verify checks that dir contains a complete bundle: every manifest hook
// plus the version descriptor, all regular files.
func Verify(dir string) error {
	names := make([]string, 0, len(Manifest)+1)
	names = append(names, Manifest...)
	names = append(names, VersionFile)

	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("bundle incomplete: %w", err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("bundle entry %s is not a regular file", name)
		}
	}

	return nil
}

// Install copies the bundle's hook scripts from srcDir into dstDir. Every
// file is written atomically (temp file + rename), so a reader never observes
// a half-written hook and an interrupted install leaves only whole files
// behind. Hooks are installed executable regardless of source permissions.
func Install(srcDir, dstDir string) error {
	if err := Verify(srcDir); err != nil {
		return err
	}

	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("failed to create hook directory: %w", err)
	}

	for _, name := range Manifest {
		src := filepath.Join(srcDir, name)
		dst := filepath.Join(dstDir, name)
		if err := copyFile(src, dst, 0755); err != nil {
			return fmt.Errorf("failed to install hook %s: %w", name, err)
		}
	}

	return nil
}

// copyFile copies src to dst with an atomic rename.
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	// Create temp file in destination directory
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".hooksync-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	// Copy content
	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Hooks must be executable for git to run them
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, dst); err != nil {
		return err
	}

	return nil
}
