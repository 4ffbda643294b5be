package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact(t *testing.T) *Artifact {
	t.Helper()
	docs := []Document{
		{ID: "post_0", Text: "제목: 과제 질문", Metadata: Metadata{Title: "과제 질문", SourceURL: "everytime.kr/1", Likes: "3", CommentTotal: 0}},
		{ID: "post_1", Text: "제목: 수강신청", Metadata: Metadata{Title: "수강신청", SourceURL: "https://everytime.kr/2", CommentTotal: 2}},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	a, err := NewArtifact(docs, vectors, "test-model", "corpus.jsonl", time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return a
}

func TestNewArtifact_Manifest(t *testing.T) {
	a := testArtifact(t)

	assert.Equal(t, "test-model", a.Manifest.ModelName)
	assert.Equal(t, 2, a.Manifest.NumTexts)
	assert.Equal(t, 3, a.Manifest.EmbeddingDimension)
	assert.Equal(t, "corpus.jsonl", a.Manifest.SourceFile)
	assert.Equal(t, DataTypePosts, a.Manifest.DataType)
}

func TestNewArtifact_LengthMismatch(t *testing.T) {
	_, err := NewArtifact([]Document{{ID: "post_0"}}, nil, "m", "", time.Now())
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestArtifact_SaveLoadRoundTrip(t *testing.T) {
	a := testArtifact(t)
	dir := t.TempDir()

	require.NoError(t, a.Save(dir))
	for _, name := range []string{IndexFile, TextsFile, MetadataFile, EmbeddingsFile, ConfigFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, a.Documents, loaded.Documents)
	assert.Equal(t, a.Manifest.ModelName, loaded.Manifest.ModelName)
	assert.True(t, a.Manifest.CreatedAt.Equal(loaded.Manifest.CreatedAt))

	results, err := loaded.Search(context.Background(), []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "post_1", results[0].Document.ID)
	assert.Equal(t, float32(0), results[0].Distance)
}

func TestLoad_RebuildsIndexFromEmbeddings(t *testing.T) {
	a := testArtifact(t)
	dir := t.TempDir()
	require.NoError(t, a.Save(dir))
	require.NoError(t, os.Remove(filepath.Join(dir, IndexFile)))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Index.Len())
	assert.Equal(t, a.Index.Vector(0), loaded.Index.Vector(0))
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestLoad_InconsistentCounts(t *testing.T) {
	a := testArtifact(t)
	dir := t.TempDir()
	require.NoError(t, a.Save(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TextsFile), []byte(`["only one"]`), 0o644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestLoad_ToleratesMissingManifest(t *testing.T) {
	a := testArtifact(t)
	dir := t.TempDir()
	require.NoError(t, a.Save(dir))
	require.NoError(t, os.Remove(filepath.Join(dir, ConfigFile)))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Empty(t, loaded.Manifest.ModelName)
}

func TestEmptyArtifact(t *testing.T) {
	a, err := NewArtifact([]Document{}, [][]float32{}, "m", "", time.Now())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, a.Save(dir))
	loaded, err := Load(dir)
	require.NoError(t, err)

	results, err := loaded.Search(context.Background(), []float32{1, 2}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestManifest_Check(t *testing.T) {
	m := Manifest{ModelName: "sfr", EmbeddingDimension: 4}

	assert.NoError(t, m.Check("sfr", 4))
	assert.NoError(t, m.Check("", 0))
	assert.ErrorIs(t, m.Check("other", 4), ErrModelMismatch)
	assert.ErrorIs(t, m.Check("sfr", 8), ErrDimensionMismatch)
	assert.NoError(t, Manifest{}.Check("anything", 8), "legacy artifacts without a manifest pass")
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("post_1"), PointID("post_1"))
	assert.NotEqual(t, PointID("post_1"), PointID("post_2"))
}
