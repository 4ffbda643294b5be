package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/campus-qa/internal/answer"
)

const (
	defaultTopK  = 3
	maxTopK      = 20
	snippetChars = 200
)

// ErrIndexUnavailable is returned by search when no index is loaded.
var ErrIndexUnavailable = errors.New("post index not loaded")

// makeAskHandler creates the ask_question tool handler.
func makeAskHandler(a answer.Answerer) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		question := strings.TrimSpace(input.Question)
		if question == "" {
			return nil, AskQuestionOutput{}, fmt.Errorf("question is required")
		}

		resp := a.Answer(ctx, question)
		docs := resp.Documents
		if docs == nil {
			docs = []answer.DocumentLink{}
		}
		return nil, AskQuestionOutput{Answer: resp.Answer, Documents: docs}, nil
	}
}

// makeSearchHandler creates the search_posts tool handler.
// Results keep retrieval order; MinSimilarity only filters.
func makeSearchHandler(s Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchPostsInput,
) (*mcp.CallToolResult, SearchPostsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPostsInput) (
		*mcp.CallToolResult, SearchPostsOutput, error,
	) {
		if s == nil {
			return nil, SearchPostsOutput{}, ErrIndexUnavailable
		}

		topK := input.TopK
		if topK <= 0 {
			topK = defaultTopK
		}
		topK = min(topK, maxTopK)

		hits, err := s.Search(ctx, input.Query, topK)
		if err != nil {
			return nil, SearchPostsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]PostResult, 0, len(hits))
		for _, h := range hits {
			if h.Similarity < input.MinSimilarity {
				continue
			}
			meta := h.Document.Metadata
			results = append(results, PostResult{
				Rank:         h.Rank,
				Title:        meta.Title,
				URL:          answer.LinkURL(meta.SourceURL),
				Similarity:   h.Similarity,
				Distance:     h.Distance,
				Timestamp:    meta.Timestamp,
				Likes:        meta.Likes,
				CommentCount: meta.CommentCount,
				Snippet:      snippet(h.Document.Text),
			})
		}

		if len(results) == 0 {
			return nil, SearchPostsOutput{
				Results: []PostResult{},
				Message: "No matching posts found. Try broader search terms.",
			}, nil
		}
		return nil, SearchPostsOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// Mirror and source lookups are best effort and never fail the tool.
func makeStatusHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		out := StatusOutput{
			Loaded:   cfg.Manifest != nil,
			Degraded: cfg.Searcher == nil,
		}
		if m := cfg.Manifest; m != nil {
			out.Model = m.ModelName
			out.NumTexts = m.NumTexts
			out.Dimension = m.EmbeddingDimension
			if !m.CreatedAt.IsZero() {
				out.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
			}
			out.Source = m.SourceFile
		}

		if cfg.Mirror != nil {
			out.QdrantEnabled = true
			count, err := cfg.Mirror.Count(ctx)
			if err != nil {
				out.QdrantError = err.Error()
			} else {
				out.QdrantPoints = &count
			}
		}

		if cfg.Source != nil && cfg.SourcePath != "" && out.Source != "" {
			sha, err := cfg.Source.GetLatestCommitSHA(ctx, cfg.SourcePath)
			if err == nil && sha != "" {
				out.LatestSource = cfg.Source.Describe(cfg.SourcePath, sha)
				if out.LatestSource != out.Source {
					out.StaleWarning = fmt.Sprintf("Index was built from %s but the corpus is now at %s. Consider rebuilding.",
						out.Source, out.LatestSource)
				}
			}
		}

		return nil, out, nil
	}
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) <= snippetChars {
		return text
	}
	return string(r[:snippetChars]) + "..."
}
