package storage

import (
	"fmt"
	"time"
)

// Document is one retrievable unit: a post with all of its comments flattened into Text.
// Its identity inside an artifact is its position; ID is only stable within one build.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Metadata is informational only and never takes part in ranking.
type Metadata struct {
	SourceURL    string `json:"source_url"`
	Title        string `json:"title"`
	Likes        string `json:"likes"`
	CommentCount string `json:"comment_count"`
	ScrapCount   string `json:"scrap_count"`
	Timestamp    string `json:"timestamp"`
	CommentTotal int    `json:"comment_total"`
}

// ScoredDocument is a search hit. Distance is squared L2, smaller is closer.
type ScoredDocument struct {
	Position int
	Document Document
	Distance float32
}

// Manifest is the config record written next to the index. It is advisory:
// Load never rejects an artifact because of it, callers decide via Check.
type Manifest struct {
	ModelName          string    `json:"model_name"`
	NumTexts           int       `json:"num_texts"`
	EmbeddingDimension int       `json:"embedding_dimension"`
	CreatedAt          time.Time `json:"created_at"`
	SourceFile         string    `json:"source_file"`
	DataType           string    `json:"data_type"`
}

// DataTypePosts marks artifacts built from community posts with comments.
const DataTypePosts = "post_with_comments"

// Check compares the manifest with the embedding model used at query time.
// An empty model or a non-positive dim skips that half of the check.
func (m Manifest) Check(model string, dim int) error {
	if model != "" && m.ModelName != "" && m.ModelName != model {
		return fmt.Errorf("%w: index built with %q, querying with %q", ErrModelMismatch, m.ModelName, model)
	}
	if dim > 0 && m.EmbeddingDimension > 0 && m.EmbeddingDimension != dim {
		return fmt.Errorf("%w: index has %d dimensions, query has %d", ErrDimensionMismatch, m.EmbeddingDimension, dim)
	}
	return nil
}
