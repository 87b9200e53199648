package index

import (
	"errors"
	"fmt"
)

// ErrDuplicateVideo is returned by Add when the video is already indexed.
// Callers treat it as an idempotent skip, not a failure.
var ErrDuplicateVideo = errors.New("video already indexed")

// ErrEmptyIndex is returned by Search when no segments have been ingested
// yet. Callers should render it as an ordinary "no data" response.
var ErrEmptyIndex = errors.New("index is empty")

// CorruptIndexError reports that the vector artifact and the metadata table
// on disk disagree and the pair cannot be trusted for search.
type CorruptIndexError struct {
	VectorRows   int
	MetadataRows int
	Reason       string
}

func (e *CorruptIndexError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("corrupt index: %s", e.Reason)
	}
	return fmt.Sprintf("corrupt index: %d vector rows but %d metadata rows", e.VectorRows, e.MetadataRows)
}
