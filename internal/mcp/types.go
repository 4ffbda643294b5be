// Package mcp exposes the campus QA pipeline as MCP tools.
package mcp

import "github.com/bull/campus-qa/internal/answer"

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	Question string `json:"question" jsonschema:"the student's question in Korean"`
}

// AskQuestionOutput is the synthesized answer with its reference posts.
type AskQuestionOutput struct {
	Answer    string                `json:"answer"`
	Documents []answer.DocumentLink `json:"documents"`
}

// SearchPostsInput defines the input parameters for the search_posts tool.
type SearchPostsInput struct {
	Query string `json:"query" jsonschema:"search query for community posts"`
	// TopK is the maximum number of posts to return.
	TopK int `json:"top_k,omitempty" jsonschema:"maximum number of posts to return, 1 to 20, default 3"`
	// MinSimilarity drops posts scoring below it.
	MinSimilarity float64 `json:"min_similarity,omitempty" jsonschema:"minimum similarity score between 0 and 1"`
}

// SearchPostsOutput contains the matching posts.
type SearchPostsOutput struct {
	Results []PostResult `json:"results"`
	Message string       `json:"message,omitempty"`
}

// PostResult is one matching post.
type PostResult struct {
	Rank         int     `json:"rank"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Similarity   float64 `json:"similarity_score"`
	Distance     float32 `json:"distance"`
	Timestamp    string  `json:"timestamp,omitempty"`
	Likes        string  `json:"likes,omitempty"`
	CommentCount string  `json:"comment_count,omitempty"`
	Snippet      string  `json:"snippet"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the loaded index.
type StatusOutput struct {
	Loaded    bool   `json:"loaded"`
	Degraded  bool   `json:"degraded"`
	Model     string `json:"model,omitempty"`
	NumTexts  int    `json:"num_texts"`
	Dimension int    `json:"embedding_dimension"`
	CreatedAt string `json:"created_at,omitempty"`
	Source    string `json:"source,omitempty"`

	QdrantEnabled bool    `json:"qdrant_enabled"`
	QdrantPoints  *uint64 `json:"qdrant_points,omitempty"`
	QdrantError   string  `json:"qdrant_error,omitempty"`

	LatestSource string `json:"latest_source,omitempty"`
	StaleWarning string `json:"stale_warning,omitempty"`
}
