package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/consentscan/consentscan/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
//  1. It works in all terminals without compatibility issues
//  2. It's easier to pipe to files or other tools
//  3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-site table in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-site listing in addition to the totals.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary as human-readable text.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTotals(&sb, summary)
	w.writeCMPs(&sb, summary)
	if w.verbose {
		w.writeSites(&sb, summary)
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        CONSENTSCAN RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(fmt.Sprintf("Sites Crawled:  %d\n", summary.Crawled))
	sb.WriteString(fmt.Sprintf("  Succeeded:    %d\n", summary.Succeeded))
	sb.WriteString(fmt.Sprintf("  Landing Down: %d\n", summary.LandingDown))
	sb.WriteString(fmt.Sprintf("  Exceptions:   %d\n", summary.Exceptions))
	sb.WriteString(fmt.Sprintf("  Terminated:   %d\n", summary.Terminated))
	sb.WriteString(fmt.Sprintf("  Force Killed: %d\n", summary.ForceKilled))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCMPs(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.CMPHistogram) == 0 {
		return
	}
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nDETECTED CMPS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
	for _, name := range sortedCMPNames(summary.CMPHistogram) {
		sb.WriteString(fmt.Sprintf("  [+] %-20s %d\n", name, summary.CMPHistogram[name]))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSites(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nSITES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
	for _, site := range summary.Sites {
		sb.WriteString(fmt.Sprintf("  %-30s %-14s %s\n",
			site.Domain, site.Status, site.TotalTime.Round(timeRounding)))
	}
	sb.WriteString("\n")
}
