package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/consentscan/consentscan/internal/cookiedb"
)

// Algorithm selects which measurement a session runs.
type Algorithm string

// Supported session algorithms.
const (
	// AlgorithmCompliance measures whether a site honors its reject
	// controls by diffing network traffic before and after rejection.
	AlgorithmCompliance Algorithm = "compliance"

	// AlgorithmClassification measures the visible effect of stripping
	// cookie classes during randomized clickstream replays.
	AlgorithmClassification Algorithm = "classification"
)

// Default configuration values.
// Chosen to match the behavior of the original measurement runs where
// applicable; everything is overridable via CLI flags.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "consentscan"

	// DefaultDepth is the bounded-DFS traversal depth. Depth 0 visits
	// only the landing page; 1 adds directly linked inner pages. Inner
	// pages multiply crawl time quickly, so the default stays shallow.
	DefaultDepth = 1

	// DefaultFetchAttempts bounds the retries for one page fetch.
	// Three attempts absorb most transient timeouts without letting a
	// down site consume minutes per page.
	DefaultFetchAttempts = 3

	// DefaultBackoffBase is the wait after the first failed fetch.
	// Subsequent waits double up to DefaultBackoffCap.
	DefaultBackoffBase = 2 * time.Second

	// DefaultBackoffCap bounds a single backoff wait.
	DefaultBackoffCap = 30 * time.Second

	// DefaultLoadTimeout is the page-load timeout for the first fetch
	// attempt. Each retry adds DefaultLoadTimeoutStep up to
	// DefaultLoadTimeoutCap, because slow pages often load on a more
	// patient attempt.
	DefaultLoadTimeout = 30 * time.Second

	// DefaultLoadTimeoutStep is the per-attempt page-load timeout growth.
	DefaultLoadTimeoutStep = 15 * time.Second

	// DefaultLoadTimeoutCap bounds the page-load timeout.
	DefaultLoadTimeoutCap = 90 * time.Second

	// DefaultTotalActions is the classification-mode action budget per
	// site, spent across all generated clickstreams.
	DefaultTotalActions = 50

	// DefaultClickstreamLength is the number of actions per clickstream.
	DefaultClickstreamLength = 5

	// DefaultWorkers is the number of concurrent worker processes one
	// supervisor keeps in flight. Each worker owns a full browser, so
	// this is bounded by memory rather than CPU.
	DefaultWorkers = 4

	// DefaultSessionTimeout is the hard per-site deadline after which the
	// supervisor escalates to termination.
	DefaultSessionTimeout = 30 * time.Minute

	// DefaultTerminationGrace is how long a worker gets between the
	// graceful termination signal and SIGKILL. It must cover flushing
	// the partial result under the results lock.
	DefaultTerminationGrace = 30 * time.Second

	// DefaultLockTimeout bounds queue/results lock acquisition.
	DefaultLockTimeout = 10 * time.Second
)

// DefaultBlocklistClass is the cookie class the experimental interceptor
// strips when no blocklist is configured. Stripping the strictly necessary
// class maximizes the visible difference a site can show, which is what the
// classification measurement is after.
const DefaultBlocklistClass = "strictly_necessary"

// Shared-state file names inside the data root.
const (
	// SnapshotFile is the one-time run configuration snapshot.
	SnapshotFile = "config.yaml"

	// QueueFile is the pending-domain queue.
	QueueFile = "queue.json"

	// ResultsFile is the domain -> result map.
	ResultsFile = "results.json"
)

// Config holds all settings for one crawl run.
//
// Design decision: A single flat struct populated from CLI flags and passed
// by reference, mirroring how the run snapshot is one flat YAML document.
// Workers rebuild an identical Config from the snapshot, so anything that
// influences session behavior must live here, not in package globals.
type Config struct {
	// Name identifies the run; it names the data directory.
	Name string `yaml:"name"`

	// DataRoot is the directory holding all run state and artifacts.
	DataRoot string `yaml:"data_root"`

	// SiteListPath is the newline-separated site list the queue was
	// seeded from. Recorded for the offline analysis.
	SiteListPath string `yaml:"site_list_path"`

	// CookieDBPath is the classification data source. The loader is
	// picked by extension: .csv, .json (JSON lines), or .db (SQLite).
	CookieDBPath string `yaml:"cookie_db_path"`

	// Algorithm selects the session algorithm.
	Algorithm Algorithm `yaml:"algorithm"`

	// Depth is the bounded-DFS depth for compliance collection phases.
	Depth int `yaml:"depth"`

	// FetchAttempts bounds retries per page fetch.
	FetchAttempts int `yaml:"fetch_attempts"`

	// BackoffBase is the first retry wait; waits double up to BackoffCap.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BackoffCap bounds a single retry wait.
	BackoffCap time.Duration `yaml:"backoff_cap"`

	// LoadTimeout is the first attempt's page-load timeout.
	LoadTimeout time.Duration `yaml:"load_timeout"`

	// LoadTimeoutStep is added per attempt, up to LoadTimeoutCap.
	LoadTimeoutStep time.Duration `yaml:"load_timeout_step"`

	// LoadTimeoutCap bounds the page-load timeout.
	LoadTimeoutCap time.Duration `yaml:"load_timeout_cap"`

	// Blocklist names the cookie classes the experimental interceptor
	// strips during classification replays. Class names are matched
	// case- and separator-insensitively ("strictly_necessary").
	Blocklist []string `yaml:"blocklist"`

	// TotalActions is the classification-mode action budget per site.
	TotalActions int `yaml:"total_actions"`

	// ClickstreamLength is the number of actions per clickstream.
	ClickstreamLength int `yaml:"clickstream_length"`

	// Workers is the number of concurrent worker processes.
	Workers int `yaml:"workers"`

	// SessionTimeout is the hard per-site deadline.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// TerminationGrace is the SIGTERM-to-SIGKILL grace period.
	TerminationGrace time.Duration `yaml:"termination_grace"`

	// LockTimeout bounds queue/results lock acquisition.
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// Verbose enables debug-level logging.
	Verbose bool `yaml:"-"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Algorithm:         AlgorithmCompliance,
		DataRoot:          filepath.Join(xdg.DataHome, AppName),
		Depth:             DefaultDepth,
		FetchAttempts:     DefaultFetchAttempts,
		BackoffBase:       DefaultBackoffBase,
		BackoffCap:        DefaultBackoffCap,
		LoadTimeout:       DefaultLoadTimeout,
		LoadTimeoutStep:   DefaultLoadTimeoutStep,
		LoadTimeoutCap:    DefaultLoadTimeoutCap,
		Blocklist:         []string{DefaultBlocklistClass},
		TotalActions:      DefaultTotalActions,
		ClickstreamLength: DefaultClickstreamLength,
		Workers:           DefaultWorkers,
		SessionTimeout:    DefaultSessionTimeout,
		TerminationGrace:  DefaultTerminationGrace,
		LockTimeout:       DefaultLockTimeout,
	}
}

// QueuePath returns the queue file location inside the data root.
func (c *Config) QueuePath() string {
	return filepath.Join(c.DataRoot, QueueFile)
}

// ResultsPath returns the results file location inside the data root.
func (c *Config) ResultsPath() string {
	return filepath.Join(c.DataRoot, ResultsFile)
}

// SnapshotPath returns the run snapshot location inside the data root.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataRoot, SnapshotFile)
}

// BlocklistClasses parses the configured blocklist into cookie classes.
func (c *Config) BlocklistClasses() ([]cookiedb.Class, error) {
	classes := make([]cookiedb.Class, 0, len(c.Blocklist))
	for _, name := range c.Blocklist {
		class, err := cookiedb.ParseClass(name)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, nil
}

// SitePath returns the artifact directory for one site.
func (c *Config) SitePath(domain string) string {
	return filepath.Join(c.DataRoot, "sites", domain)
}

// Validate checks the configuration for contradictions.
// It returns one of the package sentinel errors so callers can match with
// errors.Is.
func (c *Config) Validate() error {
	switch c.Algorithm {
	case AlgorithmCompliance, AlgorithmClassification:
	default:
		return ErrInvalidAlgorithm
	}
	if c.DataRoot == "" {
		return ErrNoDataRoot
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.FetchAttempts < 1 {
		return ErrInvalidFetchAttempts
	}
	if c.BackoffBase <= 0 || c.BackoffCap < c.BackoffBase {
		return ErrInvalidBackoff
	}
	if c.LoadTimeout <= 0 || c.LoadTimeoutCap < c.LoadTimeout || c.LoadTimeoutStep < 0 {
		return ErrInvalidLoadTimeout
	}
	if c.Algorithm == AlgorithmClassification {
		if c.ClickstreamLength < 1 {
			return ErrInvalidClickstreamLength
		}
		if c.TotalActions < c.ClickstreamLength {
			return ErrInvalidActionBudget
		}
		if len(c.Blocklist) == 0 {
			return ErrInvalidBlocklist
		}
		if _, err := c.BlocklistClasses(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBlocklist, err)
		}
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.SessionTimeout <= 0 || c.TerminationGrace <= 0 {
		return ErrInvalidTimeout
	}
	if c.LockTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
