package report

import (
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/consentscan/consentscan/internal/model"
)

// timeRounding is the display precision of per-site durations.
const timeRounding = time.Second

// MarkdownWriter outputs summaries in Markdown format for documentation
// and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. Mermaid charts for the outcome distribution
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Consentscan Run Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Sites"},
		Rows: [][]string{
			{"Succeeded", strconv.Itoa(summary.Succeeded)},
			{"Landing page down", strconv.Itoa(summary.LandingDown)},
			{"Unexpected exception", strconv.Itoa(summary.Exceptions)},
			{"Terminated", strconv.Itoa(summary.Terminated)},
			{"Force killed", strconv.Itoa(summary.ForceKilled)},
			{"**Total**", "**" + strconv.Itoa(summary.Crawled) + "**"},
		},
	})
	md.PlainText("")

	if summary.Crawled > 0 {
		w.writePieChart(md, summary)
	}
	w.writeCMPs(md, summary)
	w.writeSites(md, summary)

	return len(md.String()), md.Build()
}

// writePieChart writes a mermaid pie chart of site outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Site Outcomes"),
		piechart.WithShowData(true),
	)

	if summary.Succeeded > 0 {
		chart.LabelAndIntValue("Succeeded", uint64(summary.Succeeded))
	}
	if summary.LandingDown > 0 {
		chart.LabelAndIntValue("Landing down", uint64(summary.LandingDown))
	}
	if summary.Exceptions > 0 {
		chart.LabelAndIntValue("Exception", uint64(summary.Exceptions))
	}
	if summary.Terminated > 0 {
		chart.LabelAndIntValue("Terminated", uint64(summary.Terminated))
	}
	if summary.ForceKilled > 0 {
		chart.LabelAndIntValue("Force killed", uint64(summary.ForceKilled))
	}

	md.H2("Outcome Distribution")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeCMPs writes the CMP detection histogram.
func (w *MarkdownWriter) writeCMPs(md *markdown.Markdown, summary *model.RunSummary) {
	if len(summary.CMPHistogram) == 0 {
		return
	}
	md.H2("Detected CMPs")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.CMPHistogram))
	for _, name := range sortedCMPNames(summary.CMPHistogram) {
		rows = append(rows, []string{name, strconv.Itoa(summary.CMPHistogram[name])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"CMP", "Sites"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSites writes the per-site table.
func (w *MarkdownWriter) writeSites(md *markdown.Markdown, summary *model.RunSummary) {
	if len(summary.Sites) == 0 {
		return
	}
	md.H2("Sites")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Sites))
	for _, site := range summary.Sites {
		url := site.URL
		if url == "" {
			url = "-"
		}
		rows = append(rows, []string{
			site.Domain,
			url,
			site.Status,
			strconv.Itoa(site.Clickstreams),
			site.TotalTime.Round(timeRounding).String(),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "URL", "Status", "Clickstreams", "Time"},
		Rows:   rows,
	})
}

// sortedCMPNames returns histogram keys ordered by count descending,
// ties broken by name.
func sortedCMPNames(histogram map[string]int) []string {
	names := make([]string, 0, len(histogram))
	for name := range histogram {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if histogram[names[i]] != histogram[names[j]] {
			return histogram[names[i]] > histogram[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
