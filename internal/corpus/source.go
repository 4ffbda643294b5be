package corpus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bull/campus-qa/internal/github"
)

// Source supplies the raw JSONL corpus and a description for the index manifest.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, string, error)
}

// FileSource reads a local JSONL dump.
type FileSource struct {
	Path string
}

// Open opens the file. Empty files are rejected since they cannot produce an index.
func (s FileSource) Open(_ context.Context) (io.ReadCloser, string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("corpus file: %w", err)
	}
	if info.Size() == 0 {
		return nil, "", fmt.Errorf("corpus file %s is empty", s.Path)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open corpus: %w", err)
	}
	return f, s.Path, nil
}

// GitHubSource reads every JSONL dump under Path in a data repository,
// concatenated in path order.
type GitHubSource struct {
	Fetcher *github.Fetcher
	Path    string
	Logger  *slog.Logger
}

// Open downloads the corpus files and records the latest commit touching them.
func (s GitHubSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files, err := s.Fetcher.ListCorpusFiles(ctx, s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("list corpus files: %w", err)
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("no %s files under %s", github.CorpusExt, s.Path)
	}

	var buf bytes.Buffer
	for _, f := range files {
		data, err := s.Fetcher.Download(ctx, f)
		if err != nil {
			return nil, "", err
		}
		buf.Write(data)
		buf.WriteByte('\n')
		logger.Debug("Downloaded corpus file", "path", f, "bytes", len(data))
	}

	sha, err := s.Fetcher.GetLatestCommitSHA(ctx, s.Path)
	if err != nil {
		logger.Warn("Could not resolve corpus commit", "path", s.Path, "error", err)
	}

	return io.NopCloser(&buf), s.Fetcher.Describe(s.Path, sha), nil
}
