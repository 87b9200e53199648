// Package embeddings maps text to fixed-dimension vectors for similarity
// search. Vectors are L2-normalized so that inner product equals cosine
// similarity.
package embeddings

import (
	"context"
	"fmt"
	"math"
)

// MaxTextLength is the longest input accepted by Embed. Callers must
// truncate upstream; silently dropping text here would break the alignment
// between segments and vectors.
const MaxTextLength = 8000

// Embedder converts text to a fixed-dimension vector. Implementations must
// be deterministic for identical input and model version, and EmbedBatch
// must return vectors in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// EmbeddingError reports rejected input or a model failure for one text.
type EmbeddingError struct {
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("embedding failed: %s", e.Reason)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func validateInput(text string) error {
	if len(text) == 0 {
		return &EmbeddingError{Reason: "empty text"}
	}
	if len(text) > MaxTextLength {
		return &EmbeddingError{Reason: fmt.Sprintf("text length %d exceeds limit %d", len(text), MaxTextLength)}
	}
	return nil
}

// l2normalize scales v to unit length in place.
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
