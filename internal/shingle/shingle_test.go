package shingle

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

var (
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
)

// solid returns a w x h image filled with one color.
func solid(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// halves returns a w x h image whose left half is one color and right half
// another.
func halves(w, h int, left, right color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, left)
			} else {
				img.SetNRGBA(x, y, right)
			}
		}
	}
	return img
}

// mustShingle builds a Shingle or fails the test.
func mustShingle(t *testing.T, img image.Image, chunkSize int) *Shingle {
	t.Helper()
	s, err := New(img, chunkSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// TestChunkCount tests the truncated-grid decomposition.
func TestChunkCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		w, h  int
		chunk int
		want  int
	}{
		{"exact grid", 40, 40, 10, 16},
		{"right remainder", 45, 40, 10, 20},
		{"bottom remainder", 40, 45, 10, 20},
		{"both remainders", 45, 45, 10, 25},
		{"image smaller than chunk", 5, 5, 10, 1},
		{"single row remainder only", 40, 8, 10, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := mustShingle(t, solid(tt.w, tt.h, green), tt.chunk)
			if got := s.ChunkCount(); got != tt.want {
				t.Errorf("ChunkCount() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("zero-size image", func(t *testing.T) {
		t.Parallel()

		if _, err := New(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 10); !errors.Is(err, ErrEmptyImage) {
			t.Errorf("expected ErrEmptyImage, got %v", err)
		}
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		t.Parallel()

		if _, err := New(solid(10, 10, green), 0); err == nil {
			t.Error("expected error for zero chunk size")
		}
	})
}

// approx compares floats with a small tolerance.
func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestCompare tests pairwise multiset similarity.
func TestCompare(t *testing.T) {
	t.Parallel()

	const chunk = 10

	t.Run("identical images score 1.0", func(t *testing.T) {
		t.Parallel()

		a := mustShingle(t, solid(40, 40, green), chunk)
		b := mustShingle(t, solid(40, 40, green), chunk)
		got, err := Compare(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 1.0) {
			t.Errorf("Compare = %v, want 1.0", got)
		}
	})

	t.Run("self comparison scores 1.0", func(t *testing.T) {
		t.Parallel()

		a := mustShingle(t, halves(40, 40, green, blue), chunk)
		got, err := Compare(a, a)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 1.0) {
			t.Errorf("Compare(x, x) = %v, want 1.0", got)
		}
	})

	t.Run("disjoint images score 0.0", func(t *testing.T) {
		t.Parallel()

		a := mustShingle(t, solid(40, 40, green), chunk)
		b := mustShingle(t, solid(40, 40, blue), chunk)
		got, err := Compare(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 0.0) {
			t.Errorf("Compare = %v, want 0.0", got)
		}
	})

	t.Run("half-shared images score 0.5", func(t *testing.T) {
		t.Parallel()

		a := mustShingle(t, solid(40, 40, green), chunk)
		b := mustShingle(t, halves(40, 40, green, blue), chunk)
		got, err := Compare(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 0.5) {
			t.Errorf("Compare = %v, want 0.5", got)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		t.Parallel()

		a := mustShingle(t, halves(40, 40, green, blue), chunk)
		b := mustShingle(t, solid(40, 40, green), chunk)
		ab, err := Compare(a, b)
		if err != nil {
			t.Fatal(err)
		}
		ba, err := Compare(b, a)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(ab, ba) {
			t.Errorf("Compare not symmetric: %v vs %v", ab, ba)
		}
	})

	t.Run("different sizes divide by the larger", func(t *testing.T) {
		t.Parallel()

		a := mustShingle(t, solid(40, 40, green), chunk) // 16 chunks
		b := mustShingle(t, solid(40, 80, green), chunk) // 32 chunks
		got, err := Compare(a, b)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 0.5) {
			t.Errorf("Compare = %v, want 0.5", got)
		}
	})

	t.Run("chunk size mismatch", func(t *testing.T) {
		t.Parallel()

		a := mustShingle(t, solid(40, 40, green), 10)
		b := mustShingle(t, solid(40, 40, green), 20)
		if _, err := Compare(a, b); !errors.Is(err, ErrChunkSizeMismatch) {
			t.Errorf("expected ErrChunkSizeMismatch, got %v", err)
		}
	})
}

// TestCompareWithControl tests three-way baseline/control/experimental
// comparison.
func TestCompareWithControl(t *testing.T) {
	t.Parallel()

	const chunk = 10
	greenImg := func() *Shingle { return mustShingle(t, solid(40, 40, green), chunk) }
	blueImg := func() *Shingle { return mustShingle(t, solid(40, 40, blue), chunk) }
	greenBlue := func() *Shingle { return mustShingle(t, halves(40, 40, green, blue), chunk) }

	t.Run("identical everywhere scores 1.0", func(t *testing.T) {
		t.Parallel()

		got, err := CompareWithControl(greenImg(), greenImg(), greenImg())
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 1.0) {
			t.Errorf("expected 1.0, got %v", got)
		}
	})

	t.Run("fully different experimental scores 0.0", func(t *testing.T) {
		t.Parallel()

		got, err := CompareWithControl(greenImg(), greenImg(), blueImg())
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 0.0) {
			t.Errorf("expected 0.0, got %v", got)
		}
	})

	t.Run("half different experimental scores 0.5", func(t *testing.T) {
		t.Parallel()

		got, err := CompareWithControl(greenImg(), greenImg(), greenBlue())
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 0.5) {
			t.Errorf("expected 0.5, got %v", got)
		}
	})

	t.Run("errors when baseline and control never agree", func(t *testing.T) {
		t.Parallel()

		if _, err := CompareWithControl(greenImg(), blueImg(), greenImg()); !errors.Is(err, ErrNoAgreement) {
			t.Errorf("expected ErrNoAgreement, got %v", err)
		}
	})

	t.Run("disagreeing positions are excluded", func(t *testing.T) {
		t.Parallel()

		// Baseline and control agree only on the left (green) half.
		// Experimental matches baseline exactly at those positions, so
		// the right-half noise never counts against it.
		experimental := mustShingle(t, halves(40, 40, green, red), chunk)
		got, err := CompareWithControl(greenImg(), greenBlue(), experimental)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 1.0) {
			t.Errorf("expected 1.0 at agreeing positions, got %v", got)
		}
	})

	t.Run("experimental differing at agreeing positions scores below 1.0", func(t *testing.T) {
		t.Parallel()

		// Experimental replaces part of the agreed (green) region.
		experimental := mustShingle(t, halves(40, 40, red, blue), chunk)
		got, err := CompareWithControl(greenImg(), greenBlue(), experimental)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, 0.0) {
			t.Errorf("expected 0.0, got %v", got)
		}
	})

	t.Run("chunk count mismatch", func(t *testing.T) {
		t.Parallel()

		tall := mustShingle(t, solid(40, 80, green), chunk)
		if _, err := CompareWithControl(greenImg(), greenImg(), tall); !errors.Is(err, ErrChunkCountMismatch) {
			t.Errorf("expected ErrChunkCountMismatch, got %v", err)
		}
	})
}
