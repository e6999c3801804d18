package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the reserved marker file name inside the hook execution
// directory. It is deliberately outside the bundle manifest so it can never
// collide with a hook script.
const FileName = ".hooksync-state.json"

// Marker records the last successfully synced bundle version and the time of
// the last sync attempt. Version is empty exactly when no bundle has ever
// been installed.
type Marker struct {
	Version       string `json:"version"`
	LastSyncEpoch int64  `json:"last_sync_epoch"`
}

// Store reads and writes the persisted sync marker.
type Store struct {
	path string
}

// NewStore creates a store for the marker file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the marker file location.
func (s *Store) Path() string {
	return s.path
}

// Read loads the marker from disk. A missing file is not an error: it returns
// a nil marker, meaning no bundle has ever been installed.
func (s *Store) Read() (*Marker, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sync marker: %w", err)
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse sync marker: %w", err)
	}

	return &m, nil
}

// Write persists the marker atomically (temp file + rename), so a concurrent
// reader never observes a partially written marker.
func (s *Store) Write(m *Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync marker: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".hooksync-marker-*")
	if err != nil {
		return fmt.Errorf("failed to create temp marker: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write sync marker: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp marker: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace sync marker: %w", err)
	}

	return nil
}
