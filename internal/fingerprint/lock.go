package fingerprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// Lock is an exclusive claim on a fingerprint store held by one run.
type Lock struct {
	path  string
	runID string
}

// LockPath returns the lock file guarding the store at storePath.
func LockPath(storePath string) string {
	return storePath + ".lock"
}

// Acquire creates the lock file for storePath, holding runID.
// If another run holds the lock, the error names the lock file and the
// holder and matches sfdeploy.ErrInvalidConfig.
func Acquire(storePath, runID string) (*Lock, error) {
	path := LockPath(storePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		holder, _ := os.ReadFile(path)
		return nil, fmt.Errorf("fingerprint store is locked by run %q (remove %s if that run is gone): %w",
			strings.TrimSpace(string(holder)), path, sfdeploy.ErrInvalidConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}

	_, writeErr := f.WriteString(runID + "\n")
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file %s: %w", path, err)
	}

	return &Lock{path: path, runID: runID}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release removes the lock file. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file %s: %w", l.path, err)
	}
	return nil
}
