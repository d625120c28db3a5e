package config

import "errors"

// Configuration validation errors.
//
// Design decision: Package-level sentinel errors rather than fmt.Errorf in
// Validate(), so callers can branch with errors.Is while the messages stay
// human-readable at the CLI boundary.
var (
	// ErrInvalidAlgorithm is returned for an algorithm other than
	// compliance or classification.
	ErrInvalidAlgorithm = errors.New("invalid algorithm: must be \"compliance\" or \"classification\"")

	// ErrNoDataRoot is returned when the data root is empty.
	ErrNoDataRoot = errors.New("no data root specified")

	// ErrInvalidDepth is returned for a negative traversal depth.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidFetchAttempts is returned when fewer than one fetch
	// attempt is allowed; the first fetch is itself an attempt.
	ErrInvalidFetchAttempts = errors.New("invalid fetch attempts: must be at least 1")

	// ErrInvalidBackoff is returned when the backoff cap is below the
	// base wait or the base wait is not positive.
	ErrInvalidBackoff = errors.New("invalid backoff: base must be positive and cap must be >= base")

	// ErrInvalidLoadTimeout is returned when the page-load timeout
	// schedule is not positive and non-decreasing.
	ErrInvalidLoadTimeout = errors.New("invalid load timeout: must be positive with cap >= initial")

	// ErrInvalidClickstreamLength is returned for an empty clickstream.
	ErrInvalidClickstreamLength = errors.New("invalid clickstream length: must be at least 1")

	// ErrInvalidActionBudget is returned when the action budget cannot
	// cover a single clickstream.
	ErrInvalidActionBudget = errors.New("invalid action budget: must cover at least one clickstream")

	// ErrInvalidBlocklist is returned when the classification blocklist
	// is empty or names an unknown cookie class.
	ErrInvalidBlocklist = errors.New("invalid blocklist: must name known cookie classes")

	// ErrInvalidWorkers is returned when no worker slot is configured.
	ErrInvalidWorkers = errors.New("invalid workers: must be at least 1")

	// ErrInvalidTimeout is returned for non-positive session, grace, or
	// lock timeouts.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrSnapshotNotFound is returned when a worker starts against a data
	// root that has no run snapshot.
	ErrSnapshotNotFound = errors.New("run snapshot not found: initialize the run first")

	// ErrNoSiteList is returned by init when no site list is given.
	ErrNoSiteList = errors.New("no site list specified")
)
