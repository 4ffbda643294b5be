//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestMirror creates a mirror on a throwaway collection.
// Skips test if Qdrant is not running.
func setupTestMirror(t *testing.T, dim int) *QdrantMirror {
	mirror, err := NewQdrantMirror("localhost", 6334, "test_posts_"+uuid.New().String())
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	require.NoError(t, mirror.EnsureCollection(context.Background(), dim))
	return mirror
}

func TestQdrantMirror_UpsertAndSearch(t *testing.T) {
	a := testArtifact(t)
	mirror := setupTestMirror(t, a.Index.Dim())
	defer mirror.Close()

	ctx := context.Background()
	require.NoError(t, mirror.Upsert(ctx, a))

	count, err := mirror.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	results, err := mirror.Search(ctx, []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "post_1", results[0].Document.ID)
	assert.Equal(t, 1, results[0].Position)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.InDelta(t, 2, results[1].Distance, 1e-4)
	assert.Equal(t, a.Documents[1].Metadata, results[0].Document.Metadata)
}

func TestQdrantMirror_ClearCollection(t *testing.T) {
	a := testArtifact(t)
	mirror := setupTestMirror(t, a.Index.Dim())
	defer mirror.Close()

	ctx := context.Background()
	require.NoError(t, mirror.Upsert(ctx, a))
	require.NoError(t, mirror.ClearCollection(ctx, a.Index.Dim()))

	count, err := mirror.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
