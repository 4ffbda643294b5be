package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *FlatIndex {
	t.Helper()
	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add(
		[]float32{0, 0},
		[]float32{3, 4},
		[]float32{1, 1},
		[]float32{1, 1}, // duplicate of row 2, ties keep index order
	))
	return idx
}

func TestFlatIndex_SearchOrdersByDistance(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, []int{0, 2, 3, 1}, positions(hits))
	assert.Equal(t, float32(0), hits[0].Distance)
	assert.Equal(t, float32(2), hits[1].Distance) // squared L2
	assert.Equal(t, float32(25), hits[3].Distance)

	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func TestFlatIndex_SearchClampsK(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search([]float32{3, 4}, 100)
	require.NoError(t, err)
	assert.Len(t, hits, idx.Len())
	assert.Equal(t, 1, hits[0].Position)

	hits, err = idx.Search([]float32{3, 4}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatIndex_EmptyIndexReturnsNoHits(t *testing.T) {
	idx := NewFlatIndex(0)

	hits, err := idx.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Search([]float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = idx.Add([]float32{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 4, idx.Len(), "failed Add must not change the index")
}

func TestFlatIndex_RoundTrip(t *testing.T) {
	idx := newTestIndex(t)

	var buf bytes.Buffer
	_, err := idx.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := ReadFlatIndex(&buf)
	require.NoError(t, err)
	assert.Equal(t, idx.Dim(), loaded.Dim())
	assert.Equal(t, idx.Len(), loaded.Len())
	assert.Equal(t, idx.Vector(1), loaded.Vector(1))
}

func TestReadFlatIndex_RejectsGarbage(t *testing.T) {
	_, err := ReadFlatIndex(bytes.NewReader([]byte("not an index at all")))
	assert.ErrorIs(t, err, ErrCorruptIndex)

	_, err = ReadFlatIndex(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func positions(hits []Hit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.Position
	}
	return out
}
