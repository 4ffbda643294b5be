package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/campus-qa/internal/corpus"
	"github.com/bull/campus-qa/internal/storage"
)

// Embedder turns document texts into vectors. *embedding.Embedder satisfies it.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Mirror receives a copy of every freshly built artifact. *storage.QdrantMirror satisfies it.
type Mirror interface {
	ClearCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, a *storage.Artifact) error
}

// BuildResult contains statistics about an index build.
type BuildResult struct {
	TotalPosts   int
	SkippedLines int
	Dimension    int
	Model        string
	Source       string
	OutputDir    string
	Mirrored     bool
	MirrorError  string
	Duration     time.Duration
}

// Pipeline orchestrates corpus reading, normalization, embedding and persistence.
type Pipeline struct {
	embedder Embedder
	mirror   Mirror
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipeline creates a new build pipeline. mirror may be nil.
func NewPipeline(embedder Embedder, mirror Mirror, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		embedder: embedder,
		mirror:   mirror,
		logger:   logger,
		now:      time.Now,
	}
}

// Build normalizes posts, embeds them and assembles an in-memory artifact.
// Any embedding failure aborts the build; no partial artifact is returned.
func (p *Pipeline) Build(ctx context.Context, posts []corpus.Post, source string) (*storage.Artifact, error) {
	docs := corpus.Normalize(posts)
	p.logger.Info("Normalized posts", "documents", len(docs))

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vectors, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	p.logger.Info("Generated embeddings", "count", len(vectors))

	artifact, err := storage.NewArtifact(docs, vectors, p.embedder.Model(), source, p.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return artifact, nil
}

// BuildAndSave reads the corpus from src, builds the artifact and writes it to dir.
// A configured mirror is refreshed afterwards; its failure is logged and reported
// in the result but leaves the saved artifact valid.
func (p *Pipeline) BuildAndSave(ctx context.Context, src corpus.Source, dir string) (*BuildResult, error) {
	start := time.Now()

	rc, source, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	posts, skipped, err := corpus.ReadJSONL(rc, p.logger)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	p.logger.Info("Loaded corpus", "source", source, "posts", len(posts), "skipped", skipped)

	artifact, err := p.Build(ctx, posts, source)
	if err != nil {
		return nil, err
	}

	if err := artifact.Save(dir); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	result := &BuildResult{
		TotalPosts:   artifact.Len(),
		SkippedLines: skipped,
		Dimension:    artifact.Manifest.EmbeddingDimension,
		Model:        artifact.Manifest.ModelName,
		Source:       source,
		OutputDir:    dir,
	}

	if p.mirror != nil {
		if err := p.refreshMirror(ctx, artifact); err != nil {
			p.logger.Warn("Mirror refresh failed, artifact kept", "error", err)
			result.MirrorError = err.Error()
		} else {
			result.Mirrored = true
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Index build complete",
		"posts", result.TotalPosts,
		"dimension", result.Dimension,
		"model", result.Model,
		"dir", dir,
		"mirrored", result.Mirrored,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) refreshMirror(ctx context.Context, a *storage.Artifact) error {
	if a.Manifest.EmbeddingDimension == 0 {
		return fmt.Errorf("empty artifact has no dimension to mirror")
	}
	if err := p.mirror.ClearCollection(ctx, a.Manifest.EmbeddingDimension); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	if err := p.mirror.Upsert(ctx, a); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}
