package session

import (
	"context"
	"time"

	"github.com/consentscan/consentscan/internal/config"
)

// backoff computes the retry schedule for one page fetch: how long to wait
// after a failed attempt and how patient the next attempt should be.
//
// The two schedules move differently on purpose. The wait doubles because
// hammering a struggling server makes things worse; the page-load timeout
// grows only linearly because a page that needed 90 seconds was never going
// to load, and session time is the scarce resource.
type backoff struct {
	base       time.Duration
	cap        time.Duration
	timeout    time.Duration
	step       time.Duration
	timeoutCap time.Duration
}

func newBackoff(cfg *config.Config) backoff {
	return backoff{
		base:       cfg.BackoffBase,
		cap:        cfg.BackoffCap,
		timeout:    cfg.LoadTimeout,
		step:       cfg.LoadTimeoutStep,
		timeoutCap: cfg.LoadTimeoutCap,
	}
}

// wait returns the pause before retry number attempt (0 = the pause after
// the first failure). Doubles from base, capped.
func (b backoff) wait(attempt int) time.Duration {
	wait := b.base
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= b.cap {
			return b.cap
		}
	}
	if wait > b.cap {
		return b.cap
	}
	return wait
}

// loadTimeout returns the page-load timeout for attempt (0-based).
// Grows by step per attempt, capped.
func (b backoff) loadTimeout(attempt int) time.Duration {
	timeout := b.timeout + time.Duration(attempt)*b.step
	if timeout > b.timeoutCap {
		return b.timeoutCap
	}
	return timeout
}

// sleep blocks for the attempt's wait or until ctx is done.
func (b backoff) sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(b.wait(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
