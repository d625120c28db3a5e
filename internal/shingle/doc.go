// Package shingle implements chunk-hash based perceptual comparison of
// screenshots.
//
// An image is partitioned into a grid of fixed-size square chunks (edge
// chunks are truncated, never padded) and each chunk's raw pixel bytes are
// hashed. Two images are then compared by multiset intersection of their
// chunk hashes, which tolerates content shifting between chunks while
// staying cheap enough to run over thousands of screenshots.
//
// The three-way variant scores an experimental screenshot only at positions
// where a baseline and a control screenshot agree, isolating the effect of
// the experiment from the page's natural nondeterminism (carousels, ads,
// timestamps).
//
// See https://www.usenix.org/legacy/events/sec07/tech/full_papers/anderson/anderson.pdf
package shingle
