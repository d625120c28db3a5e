package session

import (
	"context"
	"errors"

	"github.com/consentscan/consentscan/internal/banner"
	"github.com/consentscan/consentscan/internal/model"
)

// Compliance collection phase names. The offline tracker analysis pairs
// each page's <uid>/normal.json with <uid>/after_reject.json.
const (
	phaseNormal      = "normal"
	phaseAfterReject = "after_reject"
)

// runCompliance measures whether the site honors a cookie rejection.
//
// The algorithm is two bounded-depth collections around one consent
// interaction: crawl and record everything with consent untouched, reject
// cookies on the landing page (programmatically via a CMP when one is
// detected, otherwise through the generic banner heuristic), then crawl and
// record again. When no reject path exists at all, the first collection
// stands alone and the result says so.
func (s *Session) runCompliance(ctx context.Context, st *site) error {
	if err := s.crawlSite(ctx, st, phaseNormal, func(ctx context.Context) error {
		return s.detectCMPs(ctx, st)
	}); err != nil {
		return err
	}

	rejected, err := s.rejectConsent(ctx, st)
	if err != nil {
		return err
	}
	if !rejected {
		return nil
	}
	return s.crawlSite(ctx, st, phaseAfterReject, nil)
}

// detectCMPs records the consent management platforms present on the
// landing page. Detection failures are logged, not fatal: a page that
// breaks the probe script still gets the heuristic treatment.
func (s *Session) detectCMPs(ctx context.Context, st *site) error {
	names, err := banner.DetectCMPs(ctx, st.d)
	if err != nil {
		st.events.printf("cmp detection failed: %v", err)
		return nil
	}
	st.result.CMPs = names
	if len(names) > 0 {
		st.events.printf("detected cmps: %v", names)
	}
	return nil
}

// rejectConsent navigates back to the landing page and tries to reject
// cookies, preferring a detected CMP's programmatic path over the generic
// banner heuristic. It reports whether a rejection took effect and records
// the interaction status on the result.
func (s *Session) rejectConsent(ctx context.Context, st *site) (bool, error) {
	if err := s.fetchWithBackoff(ctx, st, st.root.String()); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return false, cerr
		}
		return false, ErrLandingPageDown
	}

	for _, name := range st.result.CMPs {
		if !banner.HasRejectPath(name) {
			continue
		}
		if err := banner.RejectViaCMP(ctx, st.d, name); err != nil {
			st.events.printf("cmp reject via %s failed: %v", name, err)
			continue
		}
		st.events.printf("rejected via cmp %s", name)
		st.result.InteractStatus = model.InteractCMPReject
		return true, nil
	}

	if s.heuristic == nil {
		st.result.InteractStatus = model.InteractNoBanner
		return false, nil
	}

	status, err := s.heuristic.Run(ctx, st.d, st.result.Domain, st.root.String(), banner.Reject)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		// Interaction failures are recorded, never retried and never
		// fatal: the site simply keeps its no-interaction measurement.
		st.events.printf("banner heuristic failed: %v", err)
		st.result.InteractStatus = int(banner.StatusFail)
		return false, nil
	}
	if !status.Succeeded() {
		st.events.printf("no reject control found")
		st.result.InteractStatus = model.InteractNoBanner
		return false, nil
	}
	st.events.printf("rejected via banner heuristic: %s", status)
	st.result.InteractStatus = int(status)
	return true, nil
}
