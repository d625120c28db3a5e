// Package cookiedb provides an immutable cookie-name to cookie-class lookup
// table backed by pluggable data sources.
//
// Classes follow the ICC cookie categories: Strictly Necessary, Performance,
// Functionality, Targeting, plus Unclassified for everything else. The lookup
// contract is total: unknown names return Unclassified, never an error, so no
// distinction is made between "known unclassified" and "unknown key".
//
// # Data sources
//
// Three loaders produce the same Store type, so the lookup contract never
// changes when a source format does:
//
//   - LoadOpenCookieDatabase: Open Cookie Database CSV export
//   - LoadCookieScript: Cookie-Script JSON-lines export
//   - LoadSQLite: a prepared SQLite table, for large curated databases
//
// When several sources are merged and disagree on a name, the last-loaded
// source wins.
package cookiedb
