package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/model"
	"github.com/consentscan/consentscan/internal/queue"
	"github.com/consentscan/consentscan/internal/shingle"
)

// NewCompareCmd creates the compare command.
// This command analyzes a finished classification run offline; it touches only
// the artifacts on disk, never a browser.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare baseline, control, and experimental artifacts of a run",
		Long: `Compare measures the visible effect of cookie stripping in a finished
classification run.

For every successful site it walks the clickstream directories and compares
the baseline/control/experimental artifacts recorded at each action:

- Screenshots are compared perceptually: chunks where baseline and control
  agree define the stable page regions, and the experimental replay is
  scored on how many of those regions it preserves. 0 difference means
  stripping changed nothing the site itself keeps stable.
- Page features (visible text, link targets, image sources) are compared by
  Jaccard similarity of their frequency tables, reporting the
  difference-in-differences between the experimental and control replays.

Examples:
  # Analyze a run
  consentscan compare --data-root /data/top-1000

  # JSON output for downstream analysis
  consentscan compare --data-root /data/top-1000 --json`,
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("data-root", "d", config.New().DataRoot,
		"Initialized run data root")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().Int("chunk-size", shingle.DefaultChunkSize,
		"Screenshot comparison chunk edge length in pixels")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, _ []string) error {
	dataRoot, err := cmd.Flags().GetString("data-root")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	chunkSize, err := cmd.Flags().GetInt("chunk-size")
	if err != nil {
		return err
	}

	cfg, err := config.LoadSnapshot(dataRoot)
	if err != nil {
		if errors.Is(err, config.ErrSnapshotNotFound) {
			return fmt.Errorf("%s is not an initialized run (run 'consentscan init' first)", dataRoot)
		}
		return err
	}

	results := queue.NewResults(cfg.ResultsPath(), cfg.LockTimeout)
	snapshot, err := results.Snapshot(context.Background())
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}

	comparison := compareRun(cfg, snapshot, chunkSize)

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(comparison)
	}
	return outputComparisonText(cmd.OutOrStdout(), comparison)
}

// RunComparison is the full offline analysis of one run.
type RunComparison struct {
	// Crawled is the number of sites with any result record.
	Crawled int `json:"crawled"`

	// Succeeded is the number of sites that were analyzed.
	Succeeded int `json:"succeeded"`

	// Skipped lists successful sites with no comparable artifacts.
	Skipped []string `json:"skipped,omitempty"`

	// Sites holds the per-site comparisons, sorted by domain.
	Sites []SiteComparison `json:"sites"`
}

// SiteComparison aggregates every comparable artifact triad of one site.
type SiteComparison struct {
	// Domain is the site identifier from the queue.
	Domain string `json:"domain"`

	// ScreenshotDifference is 1 minus the mean three-way screenshot
	// similarity. 0 means stripping changed nothing the site keeps
	// stable; 1 means it changed everything.
	ScreenshotDifference float64 `json:"screenshot_difference"`

	// ScreenshotStdev is the sample standard deviation of the
	// similarities behind ScreenshotDifference.
	ScreenshotStdev float64 `json:"screenshot_stdev"`

	// Samples is the number of screenshot triads compared.
	Samples int `json:"samples"`

	// Features maps each feature name to its comparison.
	Features map[string]FeatureComparison `json:"features,omitempty"`
}

// FeatureComparison is the difference-in-differences of one page feature.
type FeatureComparison struct {
	// ControlDiff is 1 minus the mean baseline/control Jaccard
	// similarity: how much the site changes between identical replays.
	ControlDiff float64 `json:"control_diff"`

	// ExperimentalDiff is 1 minus the mean baseline/experimental Jaccard
	// similarity: how much it changes when cookies are stripped.
	ExperimentalDiff float64 `json:"experimental_diff"`

	// DiffInDiff is ExperimentalDiff minus ControlDiff, the change
	// attributable to the stripping itself.
	DiffInDiff float64 `json:"diff_in_diff"`
}

// compareRun analyzes every successful site of a run.
func compareRun(cfg *config.Config, snapshot map[string]*model.CrawlResult, chunkSize int) *RunComparison {
	comparison := &RunComparison{Crawled: len(snapshot)}

	for domain, result := range snapshot {
		if !result.Succeeded() {
			continue
		}
		comparison.Succeeded++

		site, ok := compareSite(cfg, result, chunkSize)
		if !ok {
			comparison.Skipped = append(comparison.Skipped, domain)
			continue
		}
		comparison.Sites = append(comparison.Sites, site)
	}

	sort.Strings(comparison.Skipped)
	sort.Slice(comparison.Sites, func(i, j int) bool {
		return comparison.Sites[i].Domain < comparison.Sites[j].Domain
	})
	return comparison
}

// compareSite analyzes one site's clickstream directories. It returns false
// when no triad could be compared, matching how the offline analysis skips
// sites rather than reporting zeros for them.
func compareSite(cfg *config.Config, result *model.CrawlResult, chunkSize int) (SiteComparison, bool) {
	site := SiteComparison{
		Domain:   result.Domain,
		Features: make(map[string]FeatureComparison),
	}

	dirs := clickstreamDirs(result.DataPath)

	var sims []float64
	for _, dir := range dirs {
		sims = append(sims, screenshotSims(dir, cfg.ClickstreamLength, chunkSize)...)
	}
	if len(sims) == 0 {
		return SiteComparison{}, false
	}
	site.ScreenshotDifference = 1 - mean(sims)
	site.ScreenshotStdev = sampleStdev(sims)
	site.Samples = len(sims)

	for _, feature := range model.FeatureNames {
		var controlSims, experimentalSims []float64
		for _, dir := range dirs {
			control, experimental := featureSims(dir, feature)
			controlSims = append(controlSims, control...)
			experimentalSims = append(experimentalSims, experimental...)
		}
		if len(controlSims) == 0 || len(experimentalSims) == 0 {
			continue
		}
		fc := FeatureComparison{
			ControlDiff:      1 - mean(controlSims),
			ExperimentalDiff: 1 - mean(experimentalSims),
		}
		fc.DiffInDiff = fc.ExperimentalDiff - fc.ControlDiff
		site.Features[feature] = fc
	}

	return site, true
}

// clickstreamDirs lists the numbered clickstream directories under a site's
// data path, in generation order.
func clickstreamDirs(dataPath string) []string {
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return nil
	}

	var numbers []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	dirs := make([]string, 0, len(numbers))
	for _, n := range numbers {
		dirs = append(dirs, filepath.Join(dataPath, strconv.Itoa(n)))
	}
	return dirs
}

// screenshotSims compares every complete screenshot triad in one clickstream
// directory. Incomplete triads and incomparable images (a replay that ended
// on a differently sized page, or one with no stable regions) are skipped,
// not scored.
func screenshotSims(dir string, clickstreamLength, chunkSize int) []float64 {
	var sims []float64
	for action := 0; action <= clickstreamLength; action++ {
		baseline, err := shingleFor(dir, "baseline", action, chunkSize)
		if err != nil {
			continue
		}
		control, err := shingleFor(dir, "control", action, chunkSize)
		if err != nil {
			continue
		}
		experimental, err := shingleFor(dir, "experimental", action, chunkSize)
		if err != nil {
			continue
		}

		sim, err := shingle.CompareWithControl(baseline, control, experimental)
		if err != nil {
			continue
		}
		sims = append(sims, sim)
	}
	return sims
}

// shingleFor loads one screenshot as a shingle set.
func shingleFor(dir, phase string, action, chunkSize int) (*shingle.Shingle, error) {
	return shingle.FromFile(filepath.Join(dir, fmt.Sprintf("%s-%d.png", phase, action)), chunkSize)
}

// featureSims computes per-action Jaccard similarities of one feature for
// both replay phases of one clickstream. A clickstream missing any of the
// three phases contributes nothing.
func featureSims(dir, feature string) (control, experimental []float64) {
	data, err := os.ReadFile(filepath.Join(dir, "features.json")) //nolint:gosec // Path is built from the run's own data root
	if err != nil {
		return nil, nil
	}

	var snapshot model.FeatureSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, nil
	}

	phases := snapshot[feature]
	baseline := phases["baseline"]
	if baseline == nil || phases["control"] == nil || phases["experimental"] == nil {
		return nil, nil
	}
	return jaccardSims(baseline, phases["control"]), jaccardSims(baseline, phases["experimental"])
}

// jaccardSims zips two frequency series, comparing the snapshots taken after
// the same action number.
func jaccardSims(a, b []model.Frequency) []float64 {
	var sims []float64
	for i := 0; i < len(a) && i < len(b); i++ {
		if sim, ok := jaccardSimilarity(a[i], b[i]); ok {
			sims = append(sims, sim)
		}
	}
	return sims
}

// jaccardSimilarity computes the weighted Jaccard similarity of two frequency
// tables: the sum of per-key minimum counts over the sum of per-key maximum
// counts. Two empty tables have no defined similarity.
func jaccardSimilarity(a, b model.Frequency) (float64, bool) {
	var intersection, union int
	for key, countA := range a {
		countB := b[key]
		intersection += min(countA, countB)
		union += max(countA, countB)
	}
	for key, countB := range b {
		if _, seen := a[key]; !seen {
			union += countB
		}
	}
	if union == 0 {
		return 0, false
	}
	return float64(intersection) / float64(union), true
}

// mean returns the arithmetic mean of a non-empty sample.
func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdev returns the sample standard deviation, 0 for fewer than two
// samples.
func sampleStdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// outputComparisonText writes the comparison in human-readable text format.
func outputComparisonText(w io.Writer, comparison *RunComparison) error {
	fmt.Fprintf(w, "Compared %d/%d successful sites (%d crawled)\n",
		len(comparison.Sites), comparison.Succeeded, comparison.Crawled)

	if len(comparison.Sites) == 0 {
		fmt.Fprintln(w, "\nNo comparable artifacts found. Only classification runs produce")
		fmt.Fprintln(w, "baseline/control/experimental triads.")
		return nil
	}

	fmt.Fprintf(w, "\n  %-30s  %-10s  %-8s  %-8s  %s\n",
		"Domain", "Screenshot", "Stdev", "Samples", "Feature diff-in-diff")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 90))

	for _, site := range comparison.Sites {
		fmt.Fprintf(w, "  %-30s  %-10.4f  %-8.4f  %-8d  %s\n",
			site.Domain, site.ScreenshotDifference, site.ScreenshotStdev,
			site.Samples, formatFeatures(site.Features))
	}

	if len(comparison.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped (no comparable artifacts): %s\n",
			strings.Join(comparison.Skipped, ", "))
	}
	return nil
}

// formatFeatures renders the per-feature diff-in-diff values in the stable
// feature order.
func formatFeatures(features map[string]FeatureComparison) string {
	if len(features) == 0 {
		return "-"
	}
	var parts []string
	for _, name := range model.FeatureNames {
		if fc, ok := features[name]; ok {
			parts = append(parts, fmt.Sprintf("%s %+.4f", name, fc.DiffInDiff))
		}
	}
	return strings.Join(parts, "  ")
}
