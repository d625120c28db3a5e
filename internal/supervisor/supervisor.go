package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/queue"
)

// SpawnFunc starts one worker for a domain and blocks until it finished.
// The production implementation re-executes the running binary as a worker
// process; tests substitute an in-process function.
type SpawnFunc func(ctx context.Context, domain string) error

// Supervisor drains the shared domain queue, keeping a bounded number of
// worker processes in flight and escalating on workers that hang.
//
// Design decision: Workers are separate processes rather than goroutines
// because:
//  1. A wedged browser cannot always be unwound from inside the process;
//     SIGKILL can always unwind it from outside.
//  2. A crashing session takes down only its own process, and the partial
//     result it flushed under the results lock survives.
//  3. Multiple supervisors on different machines drain the same
//     filesystem-backed queue with no coordination beyond the file locks.
type Supervisor struct {
	cfg     *config.Config
	queue   *queue.Queue
	results *queue.Results
	logger  *slog.Logger
	spawn   SpawnFunc
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSpawn replaces the worker process launcher.
// Tests use this to run workers in-process.
func WithSpawn(spawn SpawnFunc) SupervisorOption {
	return func(s *Supervisor) {
		s.spawn = spawn
	}
}

// New creates a supervisor over the run's queue and results files.
// A nil logger discards logs.
func New(cfg *config.Config, q *queue.Queue, results *queue.Results, logger *slog.Logger, opts ...SupervisorOption) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Supervisor{
		cfg:     cfg,
		queue:   q,
		results: results,
		logger:  logger,
	}
	s.spawn = s.spawnProcess
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run pops domains until the queue is empty and dispatches each to a
// worker. At most cfg.Workers workers run at once; Run blocks until every
// dispatched worker finished.
//
// Worker failures are logged and never abort the run: the failed site's
// record (or its absence) is the signal, and the remaining queue is worth
// more than a clean exit code.
func (s *Supervisor) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for {
		if err := ctx.Err(); err != nil {
			break
		}
		domain, err := s.queue.Pop(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			break
		}
		if err != nil {
			if werr := g.Wait(); werr != nil {
				s.logger.Error("worker wait", "error", werr)
			}
			return fmt.Errorf("pop queue: %w", err)
		}

		s.logger.Info("dispatching worker", "domain", domain)
		g.Go(func() error {
			if err := s.spawn(ctx, domain); err != nil {
				s.logger.Warn("worker failed", "domain", domain, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}
