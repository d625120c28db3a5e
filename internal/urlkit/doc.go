// Package urlkit provides URL canonicalization and registrable-domain
// extraction for the crawler.
//
// The same page is commonly reachable through many raw URLs that differ only
// in scheme, port, percent-encoding, query-parameter order, or fragment.
// Canonical collapses those variants into one equivalence class so that the
// traversal engine never assigns two UIDs to the same page.
//
// Design decision: We implement canonicalization on top of net/url rather
// than a third-party normalization library because:
//  1. The equivalence relation is deliberately site-measurement specific
//     (scheme and port are ignored; most normalizers preserve them)
//  2. net/url already handles the hard parts (parsing, percent-decoding)
//  3. The registrable-domain half is delegated to golang.org/x/net/publicsuffix
package urlkit
