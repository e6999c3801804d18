package bootstrap

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schwitzd/hooksync/internal/bundle"
)

//go:embed templates/shim.sh
var shimScript string

// shimMarker identifies a shim written by Install, so repeated installs can
// refresh shims without clobbering a synced bundle hook or a hand-written one.
const shimMarker = "# hooksync shim"

// IsShim reports whether path holds a hooksync bootstrap shim.
func IsShim(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), shimMarker)
}

// Install writes the bootstrap shim for every hook name in the bundle
// manifest that is not already present in hookDir. Existing shims are
// refreshed; any other existing file is left alone. It returns the hook
// names that were written.
func Install(hookDir string) ([]string, error) {
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create hook directory: %w", err)
	}

	var written []string
	for _, name := range bundle.Manifest {
		path := filepath.Join(hookDir, name)

		if _, err := os.Stat(path); err == nil && !IsShim(path) {
			continue
		}

		if err := os.WriteFile(path, []byte(shimScript), 0755); err != nil {
			return written, fmt.Errorf("failed to write shim %s: %w", name, err)
		}
		written = append(written, name)
	}

	return written, nil
}
