package queue

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/consentscan/consentscan/internal/model"
)

const testLockTimeout = 5 * time.Second

// newTestQueue creates a seeded queue in a temp directory.
func newTestQueue(t *testing.T, domains ...string) *Queue {
	t.Helper()
	q := NewQueue(filepath.Join(t.TempDir(), "queue.json"), testLockTimeout)
	if err := q.Seed(context.Background(), domains); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return q
}

// TestQueuePop tests FIFO pop semantics.
func TestQueuePop(t *testing.T) {
	t.Parallel()

	t.Run("pops in seed order", func(t *testing.T) {
		t.Parallel()

		q := newTestQueue(t, "a.com", "b.com", "c.com")
		ctx := context.Background()

		for _, want := range []string{"a.com", "b.com", "c.com"} {
			got, err := q.Pop(ctx)
			if err != nil {
				t.Fatalf("Pop: %v", err)
			}
			if got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		}

		if _, err := q.Pop(ctx); !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})

	t.Run("uninitialized queue is empty", func(t *testing.T) {
		t.Parallel()

		q := NewQueue(filepath.Join(t.TempDir(), "queue.json"), testLockTimeout)
		if _, err := q.Pop(context.Background()); !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})

	t.Run("seed does not overwrite an existing queue", func(t *testing.T) {
		t.Parallel()

		q := newTestQueue(t, "a.com")
		if err := q.Seed(context.Background(), []string{"b.com"}); err != nil {
			t.Fatalf("second Seed: %v", err)
		}

		got, err := q.Pop(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got != "a.com" {
			t.Errorf("expected original queue to survive reseed, got %q", got)
		}
	})
}

// TestQueueInject tests head insertion.
func TestQueueInject(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t, "a.com")
	ctx := context.Background()

	if err := q.Inject(ctx, "urgent.com"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if err := q.Push(ctx, "z.com"); err != nil {
		t.Fatalf("Push: %v", err)
	}

	for _, want := range []string{"urgent.com", "a.com", "z.com"} {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

// TestQueueSingleConsumer tests that one domain reaches exactly one of two
// concurrent consumers.
func TestQueueSingleConsumer(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t, "only.com")
	ctx := context.Background()

	type popResult struct {
		domain string
		err    error
	}
	results := make([]popResult, 2)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			domain, err := q.Pop(ctx)
			results[i] = popResult{domain: domain, err: err}
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, r := range results {
		switch {
		case r.err == nil:
			winners++
			if r.domain != "only.com" {
				t.Errorf("unexpected domain %q", r.domain)
			}
		case errors.Is(r.err, ErrEmpty):
			// The loser sees an empty queue.
		default:
			t.Errorf("unexpected error: %v", r.err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one consumer to win, got %d", winners)
	}

	// The queue is drained either way.
	n, err := q.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected empty queue, got %d pending", n)
	}
}

// TestResults tests merge and snapshot semantics.
func TestResults(t *testing.T) {
	t.Parallel()

	t.Run("merge and snapshot", func(t *testing.T) {
		t.Parallel()

		r := NewResults(filepath.Join(t.TempDir(), "results.json"), testLockTimeout)
		ctx := context.Background()

		result := model.NewCrawlResult("example.com")
		result.URL = "https://www.example.com"
		if err := r.Merge(ctx, result); err != nil {
			t.Fatalf("Merge: %v", err)
		}

		snapshot, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		got, ok := snapshot["example.com"]
		if !ok {
			t.Fatal("expected merged result in snapshot")
		}
		if got.URL != "https://www.example.com" {
			t.Errorf("unexpected URL %q", got.URL)
		}
	})

	t.Run("concurrent merges lose no records", func(t *testing.T) {
		t.Parallel()

		r := NewResults(filepath.Join(t.TempDir(), "results.json"), testLockTimeout)
		ctx := context.Background()

		domains := []string{"a.com", "b.com", "c.com", "d.com", "e.com"}
		var wg sync.WaitGroup
		for _, domain := range domains {
			wg.Add(1)
			go func(domain string) {
				defer wg.Done()
				if err := r.Merge(ctx, model.NewCrawlResult(domain)); err != nil {
					t.Errorf("Merge(%s): %v", domain, err)
				}
			}(domain)
		}
		wg.Wait()

		snapshot, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(snapshot) != len(domains) {
			t.Errorf("expected %d results, got %d", len(domains), len(snapshot))
		}
	})

	t.Run("force-kill marker without prior record", func(t *testing.T) {
		t.Parallel()

		r := NewResults(filepath.Join(t.TempDir(), "results.json"), testLockTimeout)
		ctx := context.Background()

		if err := r.MarkForceKilled(ctx, "hung.com"); err != nil {
			t.Fatalf("MarkForceKilled: %v", err)
		}

		snapshot, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		result, ok := snapshot["hung.com"]
		if !ok {
			t.Fatal("expected skeleton record for killed worker")
		}
		if !result.ForceKilled {
			t.Error("expected ForceKilled flag")
		}
	})

	t.Run("force-kill marker preserves a partial flush", func(t *testing.T) {
		t.Parallel()

		r := NewResults(filepath.Join(t.TempDir(), "results.json"), testLockTimeout)
		ctx := context.Background()

		partial := model.NewCrawlResult("slow.com")
		partial.URL = "https://www.slow.com"
		partial.Terminated = true
		if err := r.Merge(ctx, partial); err != nil {
			t.Fatal(err)
		}
		if err := r.MarkForceKilled(ctx, "slow.com"); err != nil {
			t.Fatal(err)
		}

		snapshot, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		result := snapshot["slow.com"]
		if result == nil || !result.ForceKilled || !result.Terminated || result.URL == "" {
			t.Errorf("expected partial data preserved under kill marker: %+v", result)
		}
	})
}
