package model

import "time"

// Interaction status codes recorded in a CrawlResult.
// Positive codes come from the consent heuristic; the crawler-owned codes
// below describe outcomes the heuristic never sees.
const (
	// InteractUnset means no interaction was attempted (or the session
	// ended before one could be).
	InteractUnset = -1

	// InteractCMPReject means a programmatic CMP reject path was invoked.
	InteractCMPReject = 100

	// InteractNoBanner means neither a CMP nor a generic banner was found.
	InteractNoBanner = 101
)

// CrawlResult is the per-site record produced by one crawl session.
//
// A result is created all-unset at session start, mutated as the session
// progresses, and finalized by the session wrapper on every exit path,
// including panics and landing-page failures, so every attempted site
// yields a record.
type CrawlResult struct {
	// Domain is the input site identifier as it appeared in the queue.
	Domain string `json:"domain"`

	// URL is the resolved landing-page URL. Empty means domain
	// resolution failed and the session never navigated anywhere.
	URL string `json:"url"`

	// DataPath is the directory holding this site's artifacts
	// (screenshots, network logs, feature snapshots, event log).
	DataPath string `json:"data_path"`

	// LandingPageDown is true when the landing page stayed unreachable
	// after all retries, aborting the session.
	LandingPageDown bool `json:"landing_page_down"`

	// UnexpectedException is true when the session body ended with an
	// error or panic that the session wrapper had to absorb.
	UnexpectedException bool `json:"unexpected_exception"`

	// Terminated is true when the worker flushed this record from its
	// termination handler after receiving a graceful shutdown signal.
	Terminated bool `json:"terminated"`

	// ForceKilled is true when the supervisor had to SIGKILL the worker.
	// Set by the supervisor, never by the worker itself.
	ForceKilled bool `json:"force_killed"`

	// TotalTime is the wall-clock duration of the session.
	TotalTime time.Duration `json:"total_time"`

	// CMPs lists the consent management platforms detected on the
	// landing page, by name.
	CMPs []string `json:"cmps"`

	// InteractStatus records the consent-interaction outcome.
	// InteractUnset when no interaction was attempted; otherwise a
	// heuristic status code or one of the Interact* constants.
	InteractStatus int `json:"interact_status"`

	// Clickstreams holds the clickstreams generated during a
	// classification-mode session, in generation order.
	Clickstreams []Clickstream `json:"clickstreams,omitempty"`

	// ClickstreamFailures counts replay aborts by element type.
	ClickstreamFailures map[string]int `json:"clickstream_failures,omitempty"`
}

// NewCrawlResult returns an all-unset result for the given domain.
func NewCrawlResult(domain string) *CrawlResult {
	return &CrawlResult{
		Domain:              domain,
		InteractStatus:      InteractUnset,
		ClickstreamFailures: make(map[string]int),
	}
}

// Succeeded reports whether the session completed without a fatal condition.
// This mirrors the success criteria used by the offline analysis: a resolved
// URL, no landing-page failure, no absorbed exception, and no kill.
func (r *CrawlResult) Succeeded() bool {
	return r.URL != "" && !r.LandingPageDown && !r.UnexpectedException && !r.ForceKilled
}
