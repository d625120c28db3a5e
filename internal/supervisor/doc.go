// Package supervisor coordinates worker processes over the shared
// filesystem-backed queue.
//
// One supervisor pops domains and keeps a bounded number of worker
// processes running, each a re-execution of the consentscan binary crawling
// a single site. Hung workers are escalated: SIGTERM, a grace period for
// the worker to flush its partial result, then SIGKILL with a force-kill
// marker merged into the results. Any number of supervisors may drain the
// same queue concurrently; the queue's file lock is the only coordination.
package supervisor
