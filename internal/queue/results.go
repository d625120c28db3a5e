package queue

import (
	"context"
	"os"
	"time"

	"github.com/consentscan/consentscan/internal/model"
)

// Results is the shared domain-to-result map.
// Workers merge their own record on exit (including from the termination
// handler); the supervisor merges a force-kill marker when a worker had to
// be SIGKILLed and could not write anything itself.
type Results struct {
	file lockedFile
}

// NewResults opens the results store at path.
func NewResults(path string, lockTimeout time.Duration) *Results {
	return &Results{file: lockedFile{path: path, lockTimeout: lockTimeout}}
}

// Merge stores the result for a domain as one read-modify-write critical
// section. A later merge for the same domain replaces the earlier record,
// which is what a retried site wants.
func (r *Results) Merge(ctx context.Context, result *model.CrawlResult) error {
	return r.file.withLock(ctx, func() error {
		results, err := r.read()
		if err != nil {
			return err
		}
		results[result.Domain] = result
		return r.file.writeJSON(results)
	})
}

// MarkForceKilled records that a worker for the domain was SIGKILLed.
// An existing record (a partial flush that won the race with the kill)
// keeps its data and gains the flag; otherwise a skeleton record is stored
// so the run accounts for every attempted site.
func (r *Results) MarkForceKilled(ctx context.Context, domain string) error {
	return r.file.withLock(ctx, func() error {
		results, err := r.read()
		if err != nil {
			return err
		}

		result, ok := results[domain]
		if !ok {
			result = model.NewCrawlResult(domain)
		}
		result.ForceKilled = true
		results[domain] = result
		return r.file.writeJSON(results)
	})
}

// Snapshot returns a copy of all results.
// An uninitialized store reads as empty.
func (r *Results) Snapshot(ctx context.Context) (map[string]*model.CrawlResult, error) {
	var snapshot map[string]*model.CrawlResult
	err := r.file.withLock(ctx, func() error {
		results, err := r.read()
		if err != nil {
			return err
		}
		snapshot = results
		return nil
	})
	return snapshot, err
}

// read loads the current map, treating a missing file as empty.
func (r *Results) read() (map[string]*model.CrawlResult, error) {
	results := make(map[string]*model.CrawlResult)
	if err := r.file.readJSON(&results); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return results, nil
}
