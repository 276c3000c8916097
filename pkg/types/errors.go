package types

import "errors"

// Domain errors shared across the pipeline
var (
	// ErrNotReady is returned when querying before an index has been built
	// or loaded.
	ErrNotReady = errors.New("index not ready: build or load an index first")

	// ErrCountMismatch is returned when vectors and metadata differ in length.
	ErrCountMismatch = errors.New("vector and metadata counts do not match")

	// ErrDimensionMismatch is returned when a vector's length does not match
	// the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexArtifactMissing is returned when a persisted index cannot be
	// loaded because one of its artifact files is missing or unreadable.
	ErrIndexArtifactMissing = errors.New("index artifact missing or unreadable")
)
