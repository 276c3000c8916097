package types

// SearchResult is one vector-index hit: the stored chunk metadata augmented
// with the per-query similarity scoring.
type SearchResult struct {
	Chunk

	// Score is the normalized similarity used for ranking and threshold
	// filtering. Higher is more similar, and scores are always comparable
	// within a single query's result set. Under the cosine metric the score
	// is the raw inner product of unit vectors; under l2 it is normalized
	// against the current result batch and is NOT comparable across queries.
	Score float64 `json:"score"`

	// Distance is the raw metric-native value returned by the backend.
	Distance float64 `json:"distance"`
}

// Validate checks that a result carries a usable chunk and sane scoring.
func (sr *SearchResult) Validate() error {
	if err := sr.Chunk.Validate(); err != nil {
		return err
	}
	return nil
}
