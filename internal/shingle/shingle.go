package shingle

import (
	"bytes"
	"crypto/md5" //nolint:gosec // fingerprinting pixels, not cryptography
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// DefaultChunkSize is the chunk edge length used by the offline analysis.
// 40px chunks are small enough to localize a banner-sized change and large
// enough that a full-page screenshot stays under a few thousand hashes.
const DefaultChunkSize = 40

// Shingle is the chunk-hash decomposition of one image.
type Shingle struct {
	// chunkSize is the chunk edge length in pixels.
	chunkSize int

	// hashes holds the chunk hashes in grid order: full chunks row-major,
	// then the right remainder column, the bottom remainder row, and the
	// bottom-right corner. Position i in two same-sized images refers to
	// the same screen region.
	hashes [][md5.Size]byte

	// counts is the multiset view of hashes.
	counts map[[md5.Size]byte]int
}

// New decomposes an image into chunk hashes.
func New(img image.Image, chunkSize int) (*Shingle, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	fullX, fullY := width/chunkSize, height/chunkSize
	remX, remY := width%chunkSize, height%chunkSize

	var hashes [][md5.Size]byte

	// Full-sized chunks, row-major.
	for y := 0; y < fullY; y++ {
		for x := 0; x < fullX; x++ {
			hashes = append(hashes, hashChunk(img, bounds.Min.X+x*chunkSize, bounds.Min.Y+y*chunkSize, chunkSize, chunkSize))
		}
	}

	// Right remainder column.
	if remX != 0 {
		for y := 0; y < fullY; y++ {
			hashes = append(hashes, hashChunk(img, bounds.Min.X+fullX*chunkSize, bounds.Min.Y+y*chunkSize, remX, chunkSize))
		}
	}

	// Bottom remainder row.
	if remY != 0 {
		for x := 0; x < fullX; x++ {
			hashes = append(hashes, hashChunk(img, bounds.Min.X+x*chunkSize, bounds.Min.Y+fullY*chunkSize, chunkSize, remY))
		}
	}

	// Bottom-right corner remainder.
	if remX != 0 && remY != 0 {
		hashes = append(hashes, hashChunk(img, bounds.Min.X+fullX*chunkSize, bounds.Min.Y+fullY*chunkSize, remX, remY))
	}

	if len(hashes) == 0 {
		return nil, ErrEmptyImage
	}

	counts := make(map[[md5.Size]byte]int, len(hashes))
	for _, h := range hashes {
		counts[h]++
	}

	return &Shingle{chunkSize: chunkSize, hashes: hashes, counts: counts}, nil
}

// FromFile decodes a PNG screenshot and decomposes it.
func FromFile(path string, chunkSize int) (*Shingle, error) {
	file, err := os.Open(path) //nolint:gosec // artifact path comes from the crawl data root
	if err != nil {
		return nil, fmt.Errorf("open screenshot: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot %s: %w", path, err)
	}
	return New(img, chunkSize)
}

// FromBytes decodes an in-memory PNG and decomposes it.
func FromBytes(data []byte, chunkSize int) (*Shingle, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return New(img, chunkSize)
}

// hashChunk hashes the raw RGBA bytes of one chunk.
func hashChunk(img image.Image, x0, y0, w, h int) [md5.Size]byte {
	buf := make([]byte, 0, w*h*4)
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf = append(buf, c.R, c.G, c.B, c.A)
		}
	}
	return md5.Sum(buf) //nolint:gosec // fingerprinting pixels, not cryptography
}

// ChunkCount returns the number of chunks in the decomposition.
func (s *Shingle) ChunkCount() int {
	return len(s.hashes)
}

// Compare returns the fraction of chunk hashes shared between two images:
// the multiset intersection size divided by the larger image's chunk count.
// It is symmetric and Compare(x, x) is always 1.0.
func Compare(a, b *Shingle) (float64, error) {
	if a.chunkSize != b.chunkSize {
		return 0, ErrChunkSizeMismatch
	}

	matches := 0
	for hash, count := range a.counts {
		if other, ok := b.counts[hash]; ok {
			matches += min(count, other)
		}
	}

	larger := max(len(a.hashes), len(b.hashes))
	return float64(matches) / float64(larger), nil
}

// CompareWithControl scores an experimental image against a baseline,
// ignoring the page's natural nondeterminism.
//
// Only positions where baseline and control carry the same hash
// participate; the result is the fraction of those positions where the
// experimental image also carries that hash. If baseline and control agree
// nowhere the similarity is undefined and ErrNoAgreement is returned.
func CompareWithControl(baseline, control, experimental *Shingle) (float64, error) {
	if baseline.chunkSize != control.chunkSize || baseline.chunkSize != experimental.chunkSize {
		return 0, ErrChunkSizeMismatch
	}
	if len(baseline.hashes) != len(control.hashes) || len(baseline.hashes) != len(experimental.hashes) {
		return 0, ErrChunkCountMismatch
	}

	agreeing, matches := 0, 0
	for i := range baseline.hashes {
		if baseline.hashes[i] != control.hashes[i] {
			continue
		}
		agreeing++
		if experimental.hashes[i] == baseline.hashes[i] {
			matches++
		}
	}

	if agreeing == 0 {
		return 0, ErrNoAgreement
	}
	return float64(matches) / float64(agreeing), nil
}
