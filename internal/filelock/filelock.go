// Package filelock guards a user's session against a second compass
// process and provides atomic file writes for exported artifacts.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// SessionLock is an advisory cross-process lock for one user's
// record. Two interactive sessions editing the same record would
// interleave read-modify-write cycles; the lock makes the second
// session fail fast instead.
type SessionLock struct {
	flock *flock.Flock
	path  string
}

// NewSessionLock creates a lock file for the given user under dir.
func NewSessionLock(dir, userID string) *SessionLock {
	path := filepath.Join(dir, userID+".lock")
	return &SessionLock{
		flock: flock.New(path),
		path:  path,
	}
}

// TryAcquire attempts to take the lock without blocking. Returns
// false when another session holds it.
func (l *SessionLock) TryAcquire() (bool, error) {
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire session lock %s: %w", l.path, err)
	}
	return acquired, nil
}

// Release releases the lock.
func (l *SessionLock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release session lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *SessionLock) Path() string {
	return l.path
}

// AtomicWrite writes data to path via a temp file and rename so a
// reader never observes a partial file. The temp file is created in
// the target directory to keep the rename on one filesystem, where it
// is atomic. On failure the original file, if any, is unchanged.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}
