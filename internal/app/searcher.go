package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/bull/campus-qa/internal/retriever"
	"github.com/bull/campus-qa/internal/storage"
)

// mirrorCheckTimeout bounds the point count query made at startup.
const mirrorCheckTimeout = 10 * time.Second

// MirrorSearcher is the query side of a vector store mirror.
// *storage.QdrantMirror satisfies it.
type MirrorSearcher interface {
	retriever.Searcher
	Count(ctx context.Context) (uint64, error)
}

// selectSearcher adopts mirror only when it holds exactly one point per
// artifact document. Otherwise searches stay on the local artifact and false
// is returned.
func selectSearcher(ctx context.Context, artifact *storage.Artifact, mirror MirrorSearcher, logger *slog.Logger) (retriever.Searcher, bool) {
	ctx, cancel := context.WithTimeout(ctx, mirrorCheckTimeout)
	defer cancel()

	count, err := mirror.Count(ctx)
	if err != nil {
		logger.Warn("Qdrant mirror not readable, using local index", "error", err)
		return artifact, false
	}
	if count != uint64(artifact.Len()) {
		logger.Warn("Qdrant mirror does not match the index, using local index",
			"mirror_points", count, "index_posts", artifact.Len())
		return artifact, false
	}

	logger.Info("Searching through Qdrant mirror", "points", count)
	return &fallbackSearcher{primary: mirror, fallback: artifact, logger: logger}, true
}

// fallbackSearcher queries primary and retries a failed query on fallback.
type fallbackSearcher struct {
	primary  retriever.Searcher
	fallback retriever.Searcher
	logger   *slog.Logger
}

func (s *fallbackSearcher) Search(ctx context.Context, query []float32, k int) ([]storage.ScoredDocument, error) {
	results, err := s.primary.Search(ctx, query, k)
	if err == nil {
		return results, nil
	}
	s.logger.Warn("Mirror search failed, using local index", "error", err)
	return s.fallback.Search(ctx, query, k)
}
