// Package localstate keeps small client-side values outside the document store
package localstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// RawProfileFile is the file name of the raw master profile
const RawProfileFile = "master_profile.txt"

// RawProfile is the free-text master profile kept on this machine
type RawProfile struct {
	path string
}

func NewRawProfile(dataDir string) *RawProfile {
	return &RawProfile{path: filepath.Join(dataDir, RawProfileFile)}
}

// Path returns the backing file
func (r *RawProfile) Path() string {
	return r.path
}

// Load returns the saved text, or "" when nothing was saved yet
func (r *RawProfile) Load() (string, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read raw profile: %w", err)
	}
	return string(b), nil
}

// Save replaces the saved text
func (r *RawProfile) Save(text string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Write next to the target and rename so a crash never leaves half a file
	tmp, err := os.CreateTemp(filepath.Dir(r.path), RawProfileFile+".*")
	if err != nil {
		return fmt.Errorf("failed to save raw profile: %w", err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save raw profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save raw profile: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save raw profile: %w", err)
	}
	return nil
}
