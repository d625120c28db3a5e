package queue

import "errors"

// Shared-state errors.
var (
	// ErrEmpty is returned by Pop when no domain is pending.
	// Supervisors treat it as the normal end-of-run signal.
	ErrEmpty = errors.New("queue is empty")

	// ErrLockTimeout is returned when the advisory lock could not be
	// acquired within the configured bound. A sibling process is either
	// busy or wedged; the caller decides whether to retry.
	ErrLockTimeout = errors.New("timed out acquiring file lock")
)
