// Package retriever answers nearest-neighbour queries against a built index.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/campus-qa/internal/storage"
)

// QueryEmbedder embeds query strings. *embedding.Embedder satisfies it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Model() string
}

// Searcher ranks indexed documents by squared L2 distance.
// *storage.Artifact and *storage.QdrantMirror both satisfy it.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]storage.ScoredDocument, error)
}

// Result is one ranked hit. Similarity is for display only; ordering uses Distance.
type Result struct {
	Document   storage.Document
	Distance   float32
	Similarity float64
	Rank       int
}

// Similarity maps a distance onto (0, 1]; identical vectors score 1.
func Similarity(distance float32) float64 {
	return 1 / (1 + float64(distance))
}

// Retriever embeds a query with the same model the index was built with and
// returns the closest documents.
type Retriever struct {
	embedder QueryEmbedder
	searcher Searcher
	manifest storage.Manifest
	logger   *slog.Logger
}

// New validates that embedder matches the model recorded in manifest.
// A mismatch fails loudly instead of silently returning meaningless neighbours.
func New(embedder QueryEmbedder, searcher Searcher, manifest storage.Manifest, logger *slog.Logger) (*Retriever, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := manifest.Check(embedder.Model(), 0); err != nil {
		return nil, err
	}
	if manifest.ModelName == "" {
		logger.Warn("Index has no manifest, model compatibility unchecked", "model", embedder.Model())
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		manifest: manifest,
		logger:   logger,
	}, nil
}

// Manifest returns the manifest of the index being searched.
func (r *Retriever) Manifest() storage.Manifest {
	return r.manifest
}

// Search returns up to topK documents ordered by ascending distance.
// topK is clamped to the index size; an empty index yields an empty slice.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := r.manifest.Check("", len(vec)); err != nil {
		return nil, err
	}

	hits, err := r.searcher.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Document:   h.Document,
			Distance:   h.Distance,
			Similarity: Similarity(h.Distance),
			Rank:       i + 1,
		}
	}
	r.logger.Debug("Retrieved documents", "query_len", len([]rune(query)), "results", len(results))
	return results, nil
}
