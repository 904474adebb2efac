// Package filelock serializes read-modify-write cycles on shared files across
// goroutines and processes.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	defaultLockTimeout = 10 * time.Second
	retryDelay         = 5 * time.Millisecond
)

// ErrLockTimeout is returned when the exclusive lock could not be acquired in time.
var ErrLockTimeout = errors.New("lock timeout")

// WithLock runs fn while holding an exclusive lock on the sidecar file path+".lock".
// The data file itself is never locked so it can be replaced by rename.
func WithLock(ctx context.Context, path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultLockTimeout)
	defer cancel()

	lock := flock.New(lockPath(path))
	locked, err := lock.TryLockContext(ctx, retryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		return fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLockTimeout, path)
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

// ReadFile returns the file contents, or nil when the file does not exist.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile replaces path with data through a temp file and rename, so a
// concurrent reader sees either the old or the new content.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Remove deletes path, treating a missing file as success.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Purge deletes path and its lock sidecar. Call it from inside WithLock so no
// writer is between read and rename.
func Purge(path string) error {
	if err := Remove(path); err != nil {
		return err
	}
	return Remove(lockPath(path))
}

// Exists reports whether path is present.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}

func lockPath(path string) string { return path + ".lock" }
