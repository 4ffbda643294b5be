package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultBatchSize is the number of texts sent per embedding request.
	DefaultBatchSize = 16
)

// Embedder generates embeddings for post texts and query strings.
// It batches requests and implements exponential backoff on rate limit errors.
type Embedder struct {
	client    *Client
	batchSize int

	// backOff returns a fresh retry schedule per request.
	backOff func() backoff.BackOff
}

// NewEmbedder creates a new Embedder with the given client and optional batch size.
// If batchSize is 0, DefaultBatchSize is used.
func NewEmbedder(client *Client, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{
		client:    client,
		batchSize: batchSize,
		backOff:   rateLimitBackOff,
	}
}

// rateLimitBackOff waits up to 30s in total for a rate limit to clear.
func rateLimitBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Model returns the model name recorded in index manifests.
func (e *Embedder) Model() string {
	return e.client.model
}

// GenerateEmbeddings embeds texts in order, one batch at a time.
// Any failed batch aborts the whole call; partial results are discarded.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch := texts[i:end]

		embeddings, err := e.embedBatchWithRetry(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("batch %d-%d: got %d embeddings for %d texts", i, end, len(embeddings), len(batch))
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embedBatchWithRetry(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("got %d embeddings for one query", len(vectors))
	}
	return vectors[0], nil
}

// embedBatchWithRetry generates embeddings for a single batch.
// Retries with exponential backoff on HTTP 429; other errors fail immediately.
func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.client.model),
	}

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, params)
		if err != nil {
			if !isRateLimitError(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		// Servers may return rows out of order; place them by index.
		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			pos := int(data.Index)
			if pos < 0 || pos >= len(embeddings) || embeddings[pos] != nil {
				pos = i
			}
			embeddings[pos] = toFloat32(data.Embedding)
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(e.backOff(), ctx))
	return embeddings, err
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
