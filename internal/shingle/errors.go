package shingle

import "errors"

// Comparator precondition errors.
// Callers typically skip the offending sample on errors.Is match rather
// than aborting a whole analysis run.
var (
	// ErrChunkSizeMismatch is returned when two shingle sets were built
	// with different chunk sizes and are therefore incomparable.
	ErrChunkSizeMismatch = errors.New("shingles must have the same chunk size")

	// ErrChunkCountMismatch is returned by the three-way comparison when
	// the images decompose into different numbers of chunks, so positions
	// cannot be aligned.
	ErrChunkCountMismatch = errors.New("shingles must have the same chunk count")

	// ErrNoAgreement is returned by the three-way comparison when baseline
	// and control agree at no position, leaving the similarity undefined.
	ErrNoAgreement = errors.New("baseline and control share no agreeing chunks")

	// ErrEmptyImage is returned when an image decomposes into zero chunks.
	ErrEmptyImage = errors.New("image has no chunks")
)
