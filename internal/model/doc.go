// Package model defines the data structures shared across the crawler:
// crawl results, clickstream actions, intercepted requests, network
// exchanges, and feature snapshots.
//
// Design decision: These types live in their own package rather than in the
// packages that produce them because they cross every layer boundary: the
// session engine produces a CrawlResult, the queue persists it, the report
// package renders it, and the offline comparator reads it back. A dedicated
// model package avoids import cycles between those layers.
package model
