package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another migration already holds the lock
var ErrLocked = errors.New("another migration is already running")

// Lock is an exclusive, cross-process run lock backed by a lock file
type Lock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the lock at path without waiting
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}

	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the lock file
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
