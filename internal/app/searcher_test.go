package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/campus-qa/internal/storage"
)

type fakeMirror struct {
	count    uint64
	countErr error
	hits     []storage.ScoredDocument
	err      error
	searches int
}

func (m *fakeMirror) Count(context.Context) (uint64, error) { return m.count, m.countErr }

func (m *fakeMirror) Search(context.Context, []float32, int) ([]storage.ScoredDocument, error) {
	m.searches++
	return m.hits, m.err
}

func twoDocArtifact(t *testing.T) *storage.Artifact {
	t.Helper()
	docs := []storage.Document{
		{ID: "post_0", Text: "과제", Metadata: storage.Metadata{SourceURL: "everytime.kr/1"}},
		{ID: "post_1", Text: "학식", Metadata: storage.Metadata{SourceURL: "everytime.kr/2"}},
	}
	a, err := storage.NewArtifact(docs, [][]float32{{0, 0}, {1, 1}}, runeModel, "corpus.jsonl", time.Now())
	require.NoError(t, err)
	return a
}

func TestSelectSearcher_KeepsArtifactOnMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mirror *fakeMirror
	}{
		{"missing collection", &fakeMirror{countErr: errors.New("collection campus_posts not found")}},
		{"partial refresh", &fakeMirror{count: 1}},
		{"other snapshot", &fakeMirror{count: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := twoDocArtifact(t)

			searcher, adopted := selectSearcher(context.Background(), artifact, tt.mirror, slog.Default())
			assert.False(t, adopted)
			assert.Same(t, artifact, searcher)

			hits, err := searcher.Search(context.Background(), []float32{0, 0}, 1)
			require.NoError(t, err)
			assert.Equal(t, "post_0", hits[0].Document.ID)
			assert.Zero(t, tt.mirror.searches)
		})
	}
}

func TestSelectSearcher_AdoptsMatchingMirror(t *testing.T) {
	artifact := twoDocArtifact(t)
	mirror := &fakeMirror{count: 2, hits: []storage.ScoredDocument{{Position: 1, Document: artifact.Documents[1]}}}

	searcher, adopted := selectSearcher(context.Background(), artifact, mirror, slog.Default())
	require.True(t, adopted)

	hits, err := searcher.Search(context.Background(), []float32{0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.searches)
	assert.Equal(t, "post_1", hits[0].Document.ID)
}

func TestSelectSearcher_FallsBackWhenMirrorQueryFails(t *testing.T) {
	artifact := twoDocArtifact(t)
	mirror := &fakeMirror{count: 2, err: errors.New("rpc error: collection not found")}

	searcher, adopted := selectSearcher(context.Background(), artifact, mirror, slog.Default())
	require.True(t, adopted)

	hits, err := searcher.Search(context.Background(), []float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.searches)
	require.Len(t, hits, 1)
	assert.Equal(t, "post_1", hits[0].Document.ID)
}
