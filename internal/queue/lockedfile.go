package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is how often a blocked lock acquisition re-polls.
const lockRetryInterval = 100 * time.Millisecond

// lockedFile is a JSON document guarded by a companion advisory lock.
// All access goes through withLock so that a read-modify-write can never
// interleave with another process.
type lockedFile struct {
	// path is the JSON document location; the lock lives at path+".lock".
	path string

	// lockTimeout bounds a single lock acquisition.
	lockTimeout time.Duration
}

// withLock acquires the advisory lock, runs fn, and releases the lock on
// every exit path. Acquisition is bounded by lockTimeout and by ctx.
func (f *lockedFile) withLock(ctx context.Context, fn func() error) error {
	lock := flock.New(f.path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, f.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		if lockCtx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrLockTimeout, f.path)
		}
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLockTimeout, f.path)
	}
	defer lock.Unlock() //nolint:errcheck // advisory lock release

	return fn()
}

// readJSON decodes the document into v. A missing file is reported through
// os.IsNotExist on the returned error; callers decide whether absence means
// "empty" or "not initialized".
func (f *lockedFile) readJSON(v any) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", f.path, err)
	}
	return nil
}

// writeJSON atomically replaces the document.
// Write-to-temp plus rename keeps a reader that lost the lock race from
// ever seeing a torn file.
func (f *lockedFile) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", f.path, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
