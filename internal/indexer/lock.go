package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// RebuildLock provides cross-process mutual exclusion around a full
// reindex, using gofrs/flock so two `reindex` invocations (or a CLI
// invocation racing the HTTP rebuild endpoint) never run concurrently and
// stomp on each other's alias swap.
type RebuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewRebuildLock creates a lock file at <dir>/.reindex.lock.
func NewRebuildLock(dir string) *RebuildLock {
	lockPath := filepath.Join(dir, ".reindex.lock")
	return &RebuildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the lock without blocking. Returns false if a
// rebuild is already in progress elsewhere.
func (l *RebuildLock) TryLock() (bool, error) {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire reindex lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *RebuildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release reindex lock: %w", err)
	}
	l.locked = false
	return nil
}
