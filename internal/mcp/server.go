package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/campus-qa/internal/answer"
	"github.com/bull/campus-qa/internal/retriever"
	"github.com/bull/campus-qa/internal/storage"
)

// Searcher ranks posts for a query. *retriever.Retriever satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]retriever.Result, error)
}

// PointCounter reports how many points a vector store holds. *storage.QdrantMirror satisfies it.
type PointCounter interface {
	Count(ctx context.Context) (uint64, error)
}

// SourceResolver resolves the newest corpus revision. *github.Fetcher satisfies it.
type SourceResolver interface {
	GetLatestCommitSHA(ctx context.Context, p string) (string, error)
	Describe(p, sha string) string
}

// Config holds server dependencies. Searcher and Manifest are nil when the
// index could not be loaded and answers come from the keyword fallback.
type Config struct {
	Answerer answer.Answerer
	Searcher Searcher
	Manifest *storage.Manifest
	Mirror   PointCounter

	Source     SourceResolver
	SourcePath string
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	cfg    Config
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "campus-qa-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a university student's question in Korean, grounded in campus community posts. Returns the answer and links to the posts it used.",
	}, makeAskHandler(cfg.Answerer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_posts",
		Description: "Semantic search over indexed campus community posts. Returns titles, links, similarity scores and snippets.",
	}, makeSearchHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the status of the post index: embedding model, post count, build time, corpus source and Qdrant mirror size.",
	}, makeStatusHandler(cfg))

	return &Server{server: server, cfg: *cfg}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the server over Streamable HTTP. Stateless disables
// session management for simple tool-only clients.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Stateless: stateless})
}
