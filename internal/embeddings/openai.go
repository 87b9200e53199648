package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder generates embeddings through the OpenAI API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedder creates an embedder for the given model. The dimension
// is fixed per model and must match the index the vectors are stored in.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	dim := 1536
	if model == string(openai.LargeEmbedding3) {
		dim = 3072
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
		dim:    dim,
	}, nil
}

// Embed generates a normalized embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates normalized embeddings for all texts in one API call.
// The result is in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Reason: "empty batch"}
	}
	for i, text := range texts {
		if err := validateInput(text); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, &EmbeddingError{Reason: "OpenAI embedding request", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &EmbeddingError{Reason: fmt.Sprintf("got %d embeddings for %d texts", len(resp.Data), len(texts))}
	}

	// The API does not guarantee response order; Index says which input
	// each embedding belongs to.
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, &EmbeddingError{Reason: fmt.Sprintf("embedding index %d out of range", d.Index)}
		}
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		l2normalize(v)
		vecs[d.Index] = v
	}
	for i, v := range vecs {
		if v == nil {
			return nil, &EmbeddingError{Reason: fmt.Sprintf("no embedding returned for text %d", i)}
		}
	}
	return vecs, nil
}

// Dimension returns the embedding dimension for the configured model.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}
