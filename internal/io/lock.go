package ioutils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

// ErrTargetLocked is returned when another run holds the target lock.
var ErrTargetLocked = errors.New("target directory is in use by another run")

// TargetLock is an advisory lock on one target directory.
type TargetLock struct {
	lock *flock.Flock
}

// LockPath returns the lock file location for a target directory. The lock
// lives in the XDG runtime directory, or the system temp directory when
// that is unavailable, so the library itself is never written.
func LockPath(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	name := hex.EncodeToString(sum[:8]) + ".lock"

	path, err := xdg.RuntimeFile(filepath.Join("rp", name))
	if err != nil {
		return filepath.Join(os.TempDir(), "rp-"+name), nil
	}
	return path, nil
}

// LockTarget takes a non-blocking lock for target.
//
// Returns ErrTargetLocked if another process already holds it.
func LockTarget(target string) (*TargetLock, error) {
	path, err := LockPath(target)
	if err != nil {
		return nil, fmt.Errorf("resolve lock path: %w", err)
	}
	return lockFile(path, target)
}

func lockFile(path, target string) (*TargetLock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", target, ErrTargetLocked)
	}
	return &TargetLock{lock: fl}, nil
}

// Release drops the lock.
func (l *TargetLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
