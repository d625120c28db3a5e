// Package session runs one measurement against one site.
//
// A session owns a whole browser lifecycle: it acquires a driver from the
// factory, resolves the bare domain to a navigable URL, runs the configured
// algorithm, and tears everything down, always producing a CrawlResult.
//
// The compliance algorithm performs two bounded-depth depth-first
// traversals of the site around one consent rejection and records a
// screenshot and network log per visited page per phase. The
// classification algorithm generates random clickstreams and replays each
// twice, unmodified and with blocklisted cookie classes stripped,
// recording screenshots and page-feature snapshots after every action for
// the offline comparator.
package session
