package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/model"
	"github.com/consentscan/consentscan/internal/queue"
)

func TestJaccardSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   model.Frequency
		want   float64
		wantOK bool
	}{
		{
			name:   "identical tables",
			a:      model.Frequency{"a": 2, "b": 1},
			b:      model.Frequency{"a": 2, "b": 1},
			want:   1.0,
			wantOK: true,
		},
		{
			name:   "disjoint tables",
			a:      model.Frequency{"a": 1},
			b:      model.Frequency{"b": 1},
			want:   0.0,
			wantOK: true,
		},
		{
			name:   "partial overlap weights by count",
			a:      model.Frequency{"a": 2, "b": 1},
			b:      model.Frequency{"a": 1, "c": 1},
			want:   0.25,
			wantOK: true,
		},
		{
			name:   "empty tables have no similarity",
			a:      model.Frequency{},
			b:      model.Frequency{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := jaccardSimilarity(tt.a, tt.b)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("symmetric", func(t *testing.T) {
		t.Parallel()

		a := model.Frequency{"a": 3, "b": 1}
		b := model.Frequency{"a": 1, "c": 2}
		ab, _ := jaccardSimilarity(a, b)
		ba, _ := jaccardSimilarity(b, a)
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("expected symmetry, got %v and %v", ab, ba)
		}
	})
}

func TestMeanAndSampleStdev(t *testing.T) {
	t.Parallel()

	if got := mean([]float64{1, 2, 3}); math.Abs(got-2) > 1e-9 {
		t.Errorf("expected mean 2, got %v", got)
	}
	if got := sampleStdev([]float64{1, 2, 3}); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected stdev 1, got %v", got)
	}
	if got := sampleStdev([]float64{5}); got != 0 {
		t.Errorf("expected stdev 0 for a single sample, got %v", got)
	}
}

func TestClickstreamDirs(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	for _, name := range []string{"0", "2", "10", "notanumber"} {
		if err := os.Mkdir(filepath.Join(tmp, name), 0750); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(tmp, "logs.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	dirs := clickstreamDirs(tmp)
	want := []string{
		filepath.Join(tmp, "0"),
		filepath.Join(tmp, "2"),
		filepath.Join(tmp, "10"),
	}
	if len(dirs) != len(want) {
		t.Fatalf("expected %d dirs, got %d: %v", len(want), len(dirs), dirs)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("expected dirs[%d]=%q, got %q", i, want[i], dirs[i])
		}
	}

	if got := clickstreamDirs(filepath.Join(tmp, "missing")); got != nil {
		t.Errorf("expected nil for a missing directory, got %v", got)
	}
}

// writeTestPNG writes a solid-color screenshot.
func writeTestPNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	f, err := os.Create(path) //nolint:gosec // Test-owned temp path
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// setupComparableRun builds a data root holding one analyzable site, one
// successful site without artifacts, and one failed site.
func setupComparableRun(t *testing.T) (*config.Config, map[string]*model.CrawlResult) {
	t.Helper()

	cfg := config.New()
	cfg.DataRoot = t.TempDir()
	cfg.Algorithm = config.AlgorithmClassification
	cfg.ClickstreamLength = 1

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	streamDir := filepath.Join(cfg.SitePath("a.test"), "0")
	if err := os.MkdirAll(streamDir, 0750); err != nil {
		t.Fatal(err)
	}

	// Action 0: experimental replay unchanged. Action 1: fully changed.
	for _, phase := range []string{"baseline", "control", "experimental"} {
		writeTestPNG(t, filepath.Join(streamDir, phase+"-0.png"), red)
	}
	writeTestPNG(t, filepath.Join(streamDir, "baseline-1.png"), red)
	writeTestPNG(t, filepath.Join(streamDir, "control-1.png"), red)
	writeTestPNG(t, filepath.Join(streamDir, "experimental-1.png"), blue)

	features := model.FeatureSnapshot{
		"innerText": {
			"baseline":     {{"welcome": 1}},
			"control":      {{"welcome": 1}},
			"experimental": {{}},
		},
	}
	data, err := json.Marshal(features)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(streamDir, "features.json"), data, 0600); err != nil {
		t.Fatal(err)
	}

	emptyDir := cfg.SitePath("b.test")
	if err := os.MkdirAll(emptyDir, 0750); err != nil {
		t.Fatal(err)
	}

	snapshot := map[string]*model.CrawlResult{
		"a.test": {Domain: "a.test", URL: "https://a.test", DataPath: cfg.SitePath("a.test")},
		"b.test": {Domain: "b.test", URL: "https://b.test", DataPath: emptyDir},
		"c.test": {Domain: "c.test", LandingPageDown: true},
	}
	return cfg, snapshot
}

func TestCompareRun(t *testing.T) {
	t.Parallel()

	cfg, snapshot := setupComparableRun(t)
	comparison := compareRun(cfg, snapshot, 40)

	if comparison.Crawled != 3 {
		t.Errorf("expected 3 crawled, got %d", comparison.Crawled)
	}
	if comparison.Succeeded != 2 {
		t.Errorf("expected 2 succeeded, got %d", comparison.Succeeded)
	}
	if len(comparison.Skipped) != 1 || comparison.Skipped[0] != "b.test" {
		t.Errorf("expected b.test skipped, got %v", comparison.Skipped)
	}
	if len(comparison.Sites) != 1 {
		t.Fatalf("expected 1 analyzed site, got %d", len(comparison.Sites))
	}

	site := comparison.Sites[0]
	if site.Domain != "a.test" {
		t.Errorf("expected domain a.test, got %q", site.Domain)
	}
	if site.Samples != 2 {
		t.Errorf("expected 2 screenshot samples, got %d", site.Samples)
	}
	// One identical triad (similarity 1) and one fully changed (0).
	if math.Abs(site.ScreenshotDifference-0.5) > 1e-9 {
		t.Errorf("expected screenshot difference 0.5, got %v", site.ScreenshotDifference)
	}
	if math.Abs(site.ScreenshotStdev-math.Sqrt2/2) > 1e-9 {
		t.Errorf("expected stdev %v, got %v", math.Sqrt2/2, site.ScreenshotStdev)
	}

	fc, ok := site.Features[model.FeatureInnerText]
	if !ok {
		t.Fatal("expected innerText feature comparison")
	}
	if math.Abs(fc.ControlDiff) > 1e-9 {
		t.Errorf("expected control diff 0, got %v", fc.ControlDiff)
	}
	if math.Abs(fc.ExperimentalDiff-1) > 1e-9 {
		t.Errorf("expected experimental diff 1, got %v", fc.ExperimentalDiff)
	}
	if math.Abs(fc.DiffInDiff-1) > 1e-9 {
		t.Errorf("expected diff-in-diff 1, got %v", fc.DiffInDiff)
	}

	if _, ok := site.Features[model.FeatureLinks]; ok {
		t.Error("expected no comparison for a feature absent from features.json")
	}
}

func TestCompareCmd(t *testing.T) {
	t.Parallel()

	t.Run("analyzes an initialized run", func(t *testing.T) {
		t.Parallel()

		cfg, snapshot := setupComparableRun(t)
		if err := cfg.WriteSnapshot(); err != nil {
			t.Fatal(err)
		}
		results := queue.NewResults(cfg.ResultsPath(), cfg.LockTimeout)
		for _, result := range snapshot {
			if err := results.Merge(context.Background(), result); err != nil {
				t.Fatal(err)
			}
		}

		var buf bytes.Buffer
		cmd := NewCompareCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--data-root", cfg.DataRoot, "--json"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var comparison RunComparison
		if err := json.Unmarshal(buf.Bytes(), &comparison); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
		}
		if len(comparison.Sites) != 1 || comparison.Sites[0].Domain != "a.test" {
			t.Errorf("expected a.test in comparison, got %+v", comparison.Sites)
		}
	})

	t.Run("renders a text table", func(t *testing.T) {
		t.Parallel()

		cfg, snapshot := setupComparableRun(t)
		var buf bytes.Buffer
		if err := outputComparisonText(&buf, compareRun(cfg, snapshot, 40)); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{"a.test", "innerText", "Skipped", "b.test"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})

	t.Run("fails on uninitialized data root", func(t *testing.T) {
		t.Parallel()

		cmd := NewCompareCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"--data-root", t.TempDir()})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("expected error for uninitialized data root")
		}
		if !strings.Contains(err.Error(), "not an initialized run") {
			t.Errorf("expected initialization error, got %v", err)
		}
	})
}
