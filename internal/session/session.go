package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/consentscan/consentscan/internal/banner"
	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/cookiedb"
	"github.com/consentscan/consentscan/internal/driver"
	"github.com/consentscan/consentscan/internal/intercept"
	"github.com/consentscan/consentscan/internal/model"
	"github.com/consentscan/consentscan/internal/urlkit"
)

// Session runs one measurement algorithm against one site.
//
// Design decision: The session owns the whole lifecycle (driver
// acquisition, traversal, artifact persistence, driver teardown) and Run
// never returns an error, because:
//  1. Every attempted site must yield a result record; the supervisor has
//     nothing useful to do with a session error beyond recording it.
//  2. Error classification (landing down, terminated, unexpected) is
//     session knowledge and belongs in the result's flags.
//  3. A panic escaping to the worker process would lose the partial result.
type Session struct {
	cfg       *config.Config
	factory   driver.Factory
	heuristic banner.Heuristic
	store     *cookiedb.Store
	logger    *slog.Logger
	rng       *rand.Rand
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRand sets the random source used for clickstream generation.
// Tests inject a fixed seed to make generated streams reproducible.
func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) {
		s.rng = rng
	}
}

// New creates a session runner. The driver factory is invoked once per Run
// so each site gets a fresh browser. A nil heuristic disables generic
// banner interaction; a nil logger discards logs.
func New(cfg *config.Config, factory driver.Factory, heuristic banner.Heuristic, store *cookiedb.Store, logger *slog.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		cfg:       cfg,
		factory:   factory,
		heuristic: heuristic,
		store:     store,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// site is the mutable state of one running session.
type site struct {
	d           driver.Driver
	result      *model.CrawlResult
	events      *eventLog
	path        string
	registrable string
	root        urlkit.Canonical
}

// installHook installs the given interceptors as the driver's request hook,
// chained in order, with every header mutation recorded to the site's
// event log as original/modified line pairs.
func (s *Session) installHook(st *site, interceptors ...intercept.Interceptor) {
	chain := intercept.Chain(interceptors...)
	st.d.SetRequestHook(driver.RequestHook(intercept.Logging(chain, st.events.printf)))
}

// Run crawls one site and returns its result record. The record is always
// usable: flags describe any fatal condition, and TotalTime is set on every
// exit path.
func (s *Session) Run(ctx context.Context, domain string) *model.CrawlResult {
	start := time.Now()
	result := model.NewCrawlResult(domain)
	defer func() {
		result.TotalTime = time.Since(start)
	}()

	path := s.cfg.SitePath(domain)
	if err := os.MkdirAll(path, 0o750); err != nil {
		s.logger.Error("create site directory", "domain", domain, "error", err)
		result.UnexpectedException = true
		return result
	}
	result.DataPath = path

	events, err := openEventLog(filepath.Join(path, eventLogName))
	if err != nil {
		s.logger.Warn("event log unavailable", "domain", domain, "error", err)
	}
	defer events.Close()

	st := &site{result: result, events: events, path: path}
	err = s.runBody(ctx, domain, st)
	switch {
	case err == nil:
	case errors.Is(err, ErrLandingPageDown):
		result.LandingPageDown = true
		events.printf("landing page down")
		s.logger.Warn("landing page down", "domain", domain)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Graceful shutdown; the worker's termination handler sets the
		// Terminated flag when it flushes this record.
		events.printf("session cancelled: %v", err)
	default:
		result.UnexpectedException = true
		events.printf("unexpected error: %v", err)
		s.logger.Error("session failed", "domain", domain, "error", err)
	}
	return result
}

// runBody acquires the driver, resolves the domain, and dispatches to the
// configured algorithm. Panics are converted to errors here so the caller's
// flag classification sees them like any other failure.
func (s *Session) runBody(ctx context.Context, domain string, st *site) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panic: %v", r)
		}
	}()

	d, err := s.factory(ctx)
	if err != nil {
		return fmt.Errorf("acquire driver: %w", err)
	}
	st.d = d
	defer func() {
		if cerr := d.Close(); cerr != nil {
			s.logger.Warn("close driver", "domain", domain, "error", cerr)
		}
	}()

	url, err := s.resolveDomain(ctx, st, domain)
	if err != nil {
		return err
	}
	st.result.URL = url
	st.events.printf("resolved %s to %s", domain, url)

	registrable, err := urlkit.RegistrableDomain(url)
	if err != nil {
		return fmt.Errorf("registrable domain of %s: %w", url, err)
	}
	st.registrable = registrable

	root, err := urlkit.Parse(url)
	if err != nil {
		return fmt.Errorf("canonicalize %s: %w", url, err)
	}
	st.root = root

	switch s.cfg.Algorithm {
	case config.AlgorithmClassification:
		return s.runClassification(ctx, st)
	default:
		return s.runCompliance(ctx, st)
	}
}

// resolveDomain finds a navigable URL for the domain by trying the usual
// scheme and host prefix variants in order of preference. The returned URL
// is the post-redirect location of the first variant that loads.
func (s *Session) resolveDomain(ctx context.Context, st *site, domain string) (string, error) {
	for _, candidate := range domainCandidates(domain) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := st.d.Navigate(ctx, candidate, s.cfg.LoadTimeout)
		if err != nil {
			st.events.printf("resolve: %s failed: %v", candidate, err)
			continue
		}
		current, err := st.d.CurrentURL(ctx)
		if err != nil || current == "" {
			current = candidate
		}
		return current, nil
	}
	return "", ErrLandingPageDown
}

// domainCandidates returns the URL variants to try for a bare domain.
func domainCandidates(domain string) []string {
	candidates := []string{"https://" + domain}
	bare := !hasWWW(domain)
	if bare {
		candidates = append(candidates, "https://www."+domain)
	}
	candidates = append(candidates, "http://"+domain)
	if bare {
		candidates = append(candidates, "http://www."+domain)
	}
	return candidates
}

func hasWWW(domain string) bool {
	return len(domain) > 4 && domain[:4] == "www."
}
