package supervisor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/model"
	"github.com/consentscan/consentscan/internal/queue"
)

func testSetup(t *testing.T, domains []string, workers int) (*config.Config, *queue.Queue, *queue.Results) {
	t.Helper()
	cfg := config.New()
	cfg.DataRoot = t.TempDir()
	cfg.Workers = workers
	cfg.LockTimeout = 5 * time.Second

	q := queue.NewQueue(cfg.QueuePath(), cfg.LockTimeout)
	if err := q.Seed(context.Background(), domains); err != nil {
		t.Fatalf("seed queue: %v", err)
	}
	results := queue.NewResults(cfg.ResultsPath(), cfg.LockTimeout)
	return cfg, q, results
}

func TestSupervisorDrainsQueue(t *testing.T) {
	t.Parallel()

	domains := []string{"a.test", "b.test", "c.test", "d.test", "e.test"}
	cfg, q, results := testSetup(t, domains, 2)

	var (
		mu      sync.Mutex
		seen    []string
		running int
		peak    int
	)
	spawn := func(ctx context.Context, domain string) error {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		seen = append(seen, domain)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return results.Merge(ctx, model.NewCrawlResult(domain))
	}

	s := New(cfg, q, results, nil, WithSpawn(spawn))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(seen) != len(domains) {
		t.Errorf("workers spawned = %d, want %d", len(seen), len(domains))
	}
	if peak > 2 {
		t.Errorf("peak concurrent workers = %d, want <= 2", peak)
	}

	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatalf("queue len: %v", err)
	}
	if n != 0 {
		t.Errorf("queue length after run = %d, want 0", n)
	}

	snapshot, err := results.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("results snapshot: %v", err)
	}
	if len(snapshot) != len(domains) {
		t.Errorf("results = %d, want %d", len(snapshot), len(domains))
	}
}

func TestSupervisorEmptyQueue(t *testing.T) {
	t.Parallel()

	cfg, q, results := testSetup(t, nil, 1)
	s := New(cfg, q, results, nil, WithSpawn(func(context.Context, string) error {
		t.Error("spawn called for empty queue")
		return nil
	}))
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

// TestSupervisorsShareQueue runs two supervisors over the same queue file
// holding a single domain: exactly one of them may win the pop.
func TestSupervisorsShareQueue(t *testing.T) {
	t.Parallel()

	cfg, q, results := testSetup(t, []string{"only.test"}, 1)

	// A second queue handle over the same file, as a second supervisor
	// process would open.
	q2 := queue.NewQueue(filepath.Join(cfg.DataRoot, config.QueueFile), cfg.LockTimeout)

	var (
		mu     sync.Mutex
		spawns int
	)
	spawn := func(context.Context, string) error {
		mu.Lock()
		spawns++
		mu.Unlock()
		return nil
	}

	s1 := New(cfg, q, results, nil, WithSpawn(spawn))
	s2 := New(cfg, q2, results, nil, WithSpawn(spawn))

	var wg sync.WaitGroup
	for _, s := range []*Supervisor{s1, s2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(context.Background()); err != nil {
				t.Errorf("Run() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if spawns != 1 {
		t.Errorf("spawned workers = %d, want exactly 1", spawns)
	}
}

func TestSupervisorStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	cfg, q, results := testSetup(t, []string{"a.test", "b.test"}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(cfg, q, results, nil, WithSpawn(func(context.Context, string) error {
		t.Error("spawn called after cancellation")
		return nil
	}))
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatalf("queue len: %v", err)
	}
	if n != 2 {
		t.Errorf("queue length = %d, want 2 (nothing popped)", n)
	}
}
