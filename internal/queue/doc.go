// Package queue implements the shared crawl state: a pending-domain queue
// and a domain-to-result map, both persisted as JSON files on a filesystem
// shared by every supervisor and worker process.
//
// Each file has a companion ".lock" advisory lock. Every read-modify-write
// is one critical section under that lock with a bounded acquisition
// timeout; the lock is the only coordination primitive between processes,
// and it is never held across a process spawn.
//
// Design decision: Flat JSON files under flock rather than an embedded
// transactional store because:
//  1. The write rate is one record per site per run, so contention is rare
//  2. The offline analysis wants to read the files directly
//  3. A crashed process leaves no lock state behind (advisory locks die
//     with their holder)
package queue
