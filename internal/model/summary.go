package model

import (
	"sort"
	"time"
)

// SiteSummary is the one-line view of a crawled site used by run reports.
type SiteSummary struct {
	// Domain is the site identifier from the queue.
	Domain string `json:"domain"`

	// URL is the resolved landing page, empty when resolution failed.
	URL string `json:"url"`

	// Status is a short outcome label: ok, landing-down, exception,
	// terminated, or force-killed.
	Status string `json:"status"`

	// CMPs are the detected consent management platforms.
	CMPs []string `json:"cmps,omitempty"`

	// Clickstreams is the number of generated clickstreams.
	Clickstreams int `json:"clickstreams"`

	// TotalTime is the session's wall-clock duration.
	TotalTime time.Duration `json:"total_time"`
}

// RunSummary aggregates every site result of one crawl run.
type RunSummary struct {
	// Crawled is the number of sites with any result record.
	Crawled int `json:"crawled"`

	// Succeeded counts clean sessions.
	Succeeded int `json:"succeeded"`

	// LandingDown counts sites whose landing page stayed unreachable.
	LandingDown int `json:"landing_down"`

	// Exceptions counts sessions ended by an absorbed error.
	Exceptions int `json:"exceptions"`

	// Terminated counts workers that flushed on a shutdown signal.
	Terminated int `json:"terminated"`

	// ForceKilled counts workers the supervisor had to SIGKILL.
	ForceKilled int `json:"force_killed"`

	// CMPHistogram counts detections per CMP name across all sites.
	CMPHistogram map[string]int `json:"cmp_histogram"`

	// Sites lists every site, sorted by domain.
	Sites []SiteSummary `json:"sites"`
}

// Site outcome labels.
const (
	StatusOK          = "ok"
	StatusLandingDown = "landing-down"
	StatusException   = "exception"
	StatusTerminated  = "terminated"
	StatusForceKilled = "force-killed"
)

// NewRunSummary builds a summary from a results snapshot.
// A result with multiple failure flags is counted once under the most
// severe: force-killed over terminated over exception over landing-down.
func NewRunSummary(snapshot map[string]*CrawlResult) *RunSummary {
	summary := &RunSummary{
		CMPHistogram: make(map[string]int),
	}

	domains := make([]string, 0, len(snapshot))
	for domain := range snapshot {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		result := snapshot[domain]
		summary.Crawled++

		status := StatusOK
		switch {
		case result.ForceKilled:
			status = StatusForceKilled
			summary.ForceKilled++
		case result.Terminated:
			status = StatusTerminated
			summary.Terminated++
		case result.UnexpectedException:
			status = StatusException
			summary.Exceptions++
		case result.LandingPageDown:
			status = StatusLandingDown
			summary.LandingDown++
		default:
			summary.Succeeded++
		}

		for _, cmp := range result.CMPs {
			summary.CMPHistogram[cmp]++
		}

		summary.Sites = append(summary.Sites, SiteSummary{
			Domain:       domain,
			URL:          result.URL,
			Status:       status,
			CMPs:         result.CMPs,
			Clickstreams: len(result.Clickstreams),
			TotalTime:    result.TotalTime,
		})
	}
	return summary
}
