// Package answer turns a student question into a grounded Korean answer
// with links to the community posts it was based on.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bull/campus-qa/internal/retriever"
)

// DefaultTopK is how many documents are retrieved per question.
const DefaultTopK = 3

const untitled = "제목 없음"

// DocumentLink points at a post that informed an answer.
type DocumentLink struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity_score"`
}

// Response is what askers receive. Documents is empty, never nil, on failure.
type Response struct {
	Answer    string         `json:"answer"`
	Documents []DocumentLink `json:"documents"`
}

// Answerer produces a response for every question. Implementations never fail;
// errors become canned answers.
type Answerer interface {
	Answer(ctx context.Context, question string) Response
}

// Retriever finds documents related to a question.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]retriever.Result, error)
}

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer answers questions by retrieval plus generation.
type Synthesizer struct {
	retriever Retriever
	generator Generator
	topK      int
	logger    *slog.Logger

	// mu serializes generation; the model is not assumed to handle concurrent calls.
	mu sync.Mutex
}

// NewSynthesizer creates a synthesizer retrieving DefaultTopK documents per question.
func NewSynthesizer(r Retriever, g Generator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		retriever: r,
		generator: g,
		topK:      DefaultTopK,
		logger:    logger,
	}
}

// WithTopK overrides how many documents are retrieved. Non-positive values are ignored.
func (s *Synthesizer) WithTopK(k int) *Synthesizer {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Answer runs retrieval and generation. It always returns a usable response.
func (s *Synthesizer) Answer(ctx context.Context, question string) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Answer generation panicked", "panic", r)
			resp = textOnly(ErrorAnswer)
		}
	}()

	results, err := s.retriever.Search(ctx, question, s.topK)
	if err != nil {
		s.logger.Error("RAG retrieval failed", "error", err)
		return textOnly(ErrorAnswer)
	}

	resp, err = s.Compose(ctx, question, results)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			return textOnly(NoResultsAnswer)
		}
		s.logger.Error("RAG answer generation failed", "error", err)
		return textOnly(ErrorAnswer)
	}

	s.logger.Info("RAG answer generated",
		"question", preview(question, 50),
		"documents", len(resp.Documents),
	)
	return resp
}

// Compose generates an answer from already retrieved results.
func (s *Synthesizer) Compose(ctx context.Context, question string, results []retriever.Result) (Response, error) {
	if len(results) == 0 {
		return Response{}, ErrNoResults
	}

	prompt := BuildPrompt(question, results)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return Response{}, fmt.Errorf("generate: %w", err)
	}

	for _, r := range results {
		s.logger.Debug("Reference document", "rank", r.Rank, "similarity", r.Similarity)
	}

	return Response{
		Answer:    Sanitize(raw),
		Documents: Links(results),
	}, nil
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generator.Generate(ctx, prompt)
}

// Links lists the source posts of results in rank order. Duplicate URLs are
// kept; results without a URL are skipped.
func Links(results []retriever.Result) []DocumentLink {
	links := make([]DocumentLink, 0, len(results))
	for _, r := range results {
		url := LinkURL(r.Document.Metadata.SourceURL)
		if url == "" {
			continue
		}
		title := r.Document.Metadata.Title
		if title == "" {
			title = untitled
		}
		links = append(links, DocumentLink{
			Title:      title,
			URL:        url,
			Similarity: r.Similarity,
		})
	}
	return links
}

// LinkURL prefixes scheme-less post URLs with https. Empty stays empty.
func LinkURL(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "http") {
		return raw
	}
	return "https://" + raw
}

func textOnly(answer string) Response {
	return Response{Answer: answer, Documents: []DocumentLink{}}
}

func preview(s string, n int) string {
	return truncateRunes(s, n)
}
