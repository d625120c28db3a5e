// Package report renders run summaries in text, JSON, and Markdown.
//
// All writers consume a model.RunSummary built from the run's results
// snapshot, so a summary can be produced while a crawl is still in
// progress: it simply describes the sites recorded so far.
package report
