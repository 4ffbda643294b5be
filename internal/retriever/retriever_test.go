package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/campus-qa/internal/storage"
)

// tableEmbedder returns fixed vectors per query.
type tableEmbedder struct {
	model   string
	vectors map[string][]float32
	err     error
}

func (e tableEmbedder) Model() string { return e.model }

func (e tableEmbedder) EmbedQuery(_ context.Context, q string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors[q], nil
}

func testArtifact(t *testing.T) *storage.Artifact {
	t.Helper()
	docs := []storage.Document{
		{ID: "post_0", Text: "과제", Metadata: storage.Metadata{Title: "과제"}},
		{ID: "post_1", Text: "학식", Metadata: storage.Metadata{Title: "학식"}},
		{ID: "post_2", Text: "동아리", Metadata: storage.Metadata{Title: "동아리"}},
	}
	vectors := [][]float32{{0, 0}, {3, 4}, {1, 0}}
	a, err := storage.NewArtifact(docs, vectors, "enc", "test", time.Now())
	require.NoError(t, err)
	return a
}

func newTestRetriever(t *testing.T, a *storage.Artifact) *Retriever {
	t.Helper()
	e := tableEmbedder{model: "enc", vectors: map[string][]float32{
		"과제":   {0, 0},
		"near": {1, 0},
		"bad":  {1, 2, 3},
	}}
	r, err := New(e, a, a.Manifest, nil)
	require.NoError(t, err)
	return r
}

func TestSearch_OrdersByDistance(t *testing.T) {
	r := newTestRetriever(t, testArtifact(t))

	results, err := r.Search(context.Background(), "과제", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"post_0", "post_2", "post_1"},
		[]string{results[0].Document.ID, results[1].Document.ID, results[2].Document.ID})
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
		assert.Equal(t, i+1, results[i].Rank)
	}
	assert.Equal(t, float32(25), results[2].Distance)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.5, results[1].Similarity, 1e-9)
}

func TestSearch_ClampsTopK(t *testing.T) {
	r := newTestRetriever(t, testArtifact(t))

	results, err := r.Search(context.Background(), "near", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = r.Search(context.Background(), "near", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyIndex(t *testing.T) {
	a, err := storage.NewArtifact(nil, nil, "enc", "empty", time.Now())
	require.NoError(t, err)
	r := newTestRetriever(t, a)

	results, err := r.Search(context.Background(), "과제", 3)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	r := newTestRetriever(t, testArtifact(t))

	_, err := r.Search(context.Background(), "bad", 3)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestSearch_EmbedFailure(t *testing.T) {
	a := testArtifact(t)
	r, err := New(tableEmbedder{model: "enc", err: errors.New("boom")}, a, a.Manifest, nil)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "과제", 3)
	assert.Error(t, err)
}

func TestNew_ModelMismatch(t *testing.T) {
	a := testArtifact(t)

	_, err := New(tableEmbedder{model: "other"}, a, a.Manifest, nil)
	assert.ErrorIs(t, err, storage.ErrModelMismatch)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(0))
	assert.InDelta(t, 1.0/3.0, Similarity(2), 1e-9)
}
