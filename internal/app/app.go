// Package app builds the components shared by the campus-qa binaries from a
// loaded configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/campus-qa/internal/answer"
	"github.com/bull/campus-qa/internal/backup"
	"github.com/bull/campus-qa/internal/config"
	"github.com/bull/campus-qa/internal/corpus"
	"github.com/bull/campus-qa/internal/embedding"
	"github.com/bull/campus-qa/internal/generation"
	ghclient "github.com/bull/campus-qa/internal/github"
	"github.com/bull/campus-qa/internal/indexer"
	"github.com/bull/campus-qa/internal/monitor"
	"github.com/bull/campus-qa/internal/retriever"
	"github.com/bull/campus-qa/internal/sheets"
	"github.com/bull/campus-qa/internal/storage"
)

// Services is the answering stack. Mirror is set only when searches go through
// it. Retriever and Manifest are nil in
// degraded mode, where answers come from the keyword table.
type Services struct {
	Answerer  answer.Answerer
	Retriever *retriever.Retriever
	Manifest  *storage.Manifest
	Mirror    *storage.QdrantMirror
	Degraded  bool
}

// Close releases the Qdrant connection, if any.
func (s *Services) Close() error {
	if s.Mirror != nil {
		return s.Mirror.Close()
	}
	return nil
}

// EmbeddingConfig maps the OpenAI settings onto an embedding client config.
func EmbeddingConfig(cfg *config.Config) embedding.Config {
	return embedding.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
		Timeout: cfg.OpenAI.Timeout,
	}
}

// LoadServices loads the index and models once for the process lifetime.
// When that fails and degraded mode is allowed, a keyword answerer is returned
// instead of an error.
func LoadServices(cfg *config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := loadRAG(cfg, logger)
	if err == nil {
		return svc, nil
	}
	if !cfg.Monitor.AllowDegraded {
		return nil, err
	}

	logger.Warn("RAG components unavailable, answering from keyword table", "error", err)
	return &Services{Answerer: answer.KeywordAnswerer{}, Degraded: true}, nil
}

func loadRAG(cfg *config.Config, logger *slog.Logger) (*Services, error) {
	artifact, err := storage.Load(cfg.Index.Dir)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	logger.Info("Loaded index",
		"dir", cfg.Index.Dir,
		"posts", artifact.Len(),
		"model", artifact.Manifest.ModelName,
		"dimension", artifact.Manifest.EmbeddingDimension,
	)

	client, err := embedding.NewClient(EmbeddingConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.Index.BatchSize)

	var searcher retriever.Searcher = artifact
	mirror := OpenMirror(cfg, logger)
	if mirror != nil {
		var adopted bool
		searcher, adopted = selectSearcher(context.Background(), artifact, mirror, logger)
		if !adopted {
			mirror.Close()
			mirror = nil
		}
	}

	r, err := retriever.New(embedder, searcher, artifact.Manifest, logger)
	if err != nil {
		if mirror != nil {
			mirror.Close()
		}
		return nil, fmt.Errorf("retriever: %w", err)
	}

	gen := generation.NewGenerator(client.Client(), cfg.OpenAI.GenerationModel, logger)
	synth := answer.NewSynthesizer(r, gen, logger).WithTopK(cfg.Index.TopK)

	manifest := artifact.Manifest
	return &Services{
		Answerer:  synth,
		Retriever: r,
		Manifest:  &manifest,
		Mirror:    mirror,
	}, nil
}

// OpenMirror connects to Qdrant when it is enabled. An unreachable mirror is
// logged and nil is returned so callers fall back to the local index.
func OpenMirror(cfg *config.Config, logger *slog.Logger) *storage.QdrantMirror {
	if !cfg.Qdrant.Enabled {
		return nil
	}
	mirror, err := storage.NewQdrantMirror(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
	if err != nil {
		logger.Warn("Qdrant mirror unavailable, using local index",
			"host", cfg.Qdrant.Host, "port", cfg.Qdrant.Port, "error", err)
		return nil
	}
	logger.Info("Connected to Qdrant mirror", "collection", mirror.Collection())
	return mirror
}

// NewFetcher returns a fetcher for the configured corpus repository, or nil
// when no GitHub corpus is configured.
func NewFetcher(ctx context.Context, cfg *config.Config) (*ghclient.Fetcher, error) {
	if !cfg.GitHubCorpus() {
		return nil, nil
	}
	client, err := ghclient.NewClient(ctx, cfg.GitHub.Token)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	return ghclient.NewFetcher(client, cfg.GitHub.Owner, cfg.GitHub.Repo, ""), nil
}

// CorpusSource picks the GitHub data repository when fromGitHub is set and
// the local corpus file otherwise.
func CorpusSource(ctx context.Context, cfg *config.Config, fromGitHub bool, logger *slog.Logger) (corpus.Source, error) {
	if !fromGitHub {
		return corpus.FileSource{Path: cfg.Index.CorpusPath}, nil
	}
	fetcher, err := NewFetcher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, fmt.Errorf("CORPUS_GITHUB_OWNER, CORPUS_GITHUB_REPO and CORPUS_GITHUB_PATH are required for a GitHub corpus")
	}
	return corpus.GitHubSource{Fetcher: fetcher, Path: cfg.GitHub.Path, Logger: logger}, nil
}

// NewPipeline builds the index pipeline. The returned mirror is nil when
// Qdrant is disabled or unreachable; the caller closes it otherwise.
func NewPipeline(cfg *config.Config, logger *slog.Logger) (*indexer.Pipeline, *storage.QdrantMirror, error) {
	client, err := embedding.NewClient(EmbeddingConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.Index.BatchSize)

	mirror := OpenMirror(cfg, logger)
	if mirror == nil {
		return indexer.NewPipeline(embedder, nil, logger), nil, nil
	}
	return indexer.NewPipeline(embedder, mirror, logger), mirror, nil
}

// NewMonitor wires the question table, backup log and answerer into a loop.
func NewMonitor(cfg *config.Config, answerer answer.Answerer, logger *slog.Logger) (*monitor.Monitor, error) {
	table, err := sheets.NewClient(sheets.Config{
		URL:          cfg.Sheets.URL,
		RequestDelay: cfg.Sheets.RequestDelay,
		Timeout:      cfg.Sheets.RequestTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("table client: %w", err)
	}

	return monitor.New(table, answerer, backup.New(cfg.Monitor.BackupPath), monitor.Config{
		QuestionTable: cfg.Sheets.QuestionTable,
		AnswerTable:   cfg.Sheets.AnswerTable,
		PollInterval:  cfg.Monitor.PollInterval,
		QuestionPause: cfg.Sheets.RequestDelay,
	}, logger), nil
}
