package queue

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Queue is the shared pending-domain list.
// Multiple supervisor processes drain one queue concurrently; the advisory
// lock guarantees each domain is handed to exactly one of them.
type Queue struct {
	file lockedFile
}

// NewQueue opens the queue stored at path.
// The file itself is created by Seed; opening never touches the filesystem.
func NewQueue(path string, lockTimeout time.Duration) *Queue {
	return &Queue{file: lockedFile{path: path, lockTimeout: lockTimeout}}
}

// Seed initializes the queue with the given domains.
// An existing queue is left untouched so that a crashed run can be resumed
// by re-running init without losing progress.
func (q *Queue) Seed(ctx context.Context, domains []string) error {
	return q.file.withLock(ctx, func() error {
		if _, err := os.Stat(q.file.path); err == nil {
			return nil // existing run in progress
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat queue: %w", err)
		}
		if domains == nil {
			domains = []string{}
		}
		return q.file.writeJSON(domains)
	})
}

// Pop removes and returns the head domain.
// The read, head removal, and write-back happen inside one critical
// section. An exhausted or uninitialized queue returns ErrEmpty.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	var domain string
	err := q.file.withLock(ctx, func() error {
		var pending []string
		if err := q.file.readJSON(&pending); err != nil {
			if os.IsNotExist(err) {
				return ErrEmpty
			}
			return err
		}
		if len(pending) == 0 {
			return ErrEmpty
		}

		domain = pending[0]
		return q.file.writeJSON(pending[1:])
	})
	return domain, err
}

// Push appends domains to the tail of the queue.
func (q *Queue) Push(ctx context.Context, domains ...string) error {
	return q.update(ctx, func(pending []string) []string {
		return append(pending, domains...)
	})
}

// Inject inserts domains at the head of the queue, ahead of everything
// pending. Used to reprioritize specific sites mid-run.
func (q *Queue) Inject(ctx context.Context, domains ...string) error {
	return q.update(ctx, func(pending []string) []string {
		return append(append([]string{}, domains...), pending...)
	})
}

// Len returns the number of pending domains.
func (q *Queue) Len(ctx context.Context) (int, error) {
	n := 0
	err := q.file.withLock(ctx, func() error {
		var pending []string
		if err := q.file.readJSON(&pending); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		n = len(pending)
		return nil
	})
	return n, err
}

// update applies one mutation to the pending list as a critical section.
// A missing queue file reads as empty.
func (q *Queue) update(ctx context.Context, mutate func([]string) []string) error {
	return q.file.withLock(ctx, func() error {
		var pending []string
		if err := q.file.readJSON(&pending); err != nil && !os.IsNotExist(err) {
			return err
		}
		return q.file.writeJSON(mutate(pending))
	})
}
