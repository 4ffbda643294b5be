package storage

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
)

// flatMagic identifies index.bin files.
var flatMagic = [4]byte{'C', 'Q', 'F', 'L'}

const flatVersion uint32 = 1

// maxFlatValues bounds what ReadFlatIndex will allocate from a header.
const maxFlatValues = 1 << 31

// FlatIndex is an exact nearest-neighbour index over squared L2 distance.
// Vectors are stored row-major; row i belongs to document i.
type FlatIndex struct {
	dim     int
	vectors []float32
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dim returns the vector dimension.
func (f *FlatIndex) Dim() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *FlatIndex) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.vectors) / f.dim
}

// Add appends vectors in order. All of them must have the index dimension.
func (f *FlatIndex) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.vectors = append(f.vectors, v...)
	}
	return nil
}

// Vector returns row i. The slice aliases index memory and must not be modified.
func (f *FlatIndex) Vector(i int) []float32 {
	return f.vectors[i*f.dim : (i+1)*f.dim]
}

// Hit is a position with its squared L2 distance to the query.
type Hit struct {
	Position int
	Distance float32
}

// Search scans every vector and returns the k closest, ascending by distance.
// Ties keep index order. k is clamped to Len; an empty index yields no hits.
func (f *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	n := f.Len()
	if n == 0 || k <= 0 {
		return []Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), f.dim)
	}
	k = min(k, n)

	hits := make([]Hit, n)
	for i := range n {
		hits[i] = Hit{Position: i, Distance: squaredL2(query, f.Vector(i))}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return hits[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// WriteTo serializes the index as a small header followed by little-endian float32 rows.
func (f *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	header := struct {
		Magic   [4]byte
		Version uint32
		Count   uint32
		Dim     uint32
	}{flatMagic, flatVersion, uint32(f.Len()), uint32(f.dim)}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	if err := writeMatrix(w, f.vectors); err != nil {
		return 16, err
	}
	return 16 + int64(len(f.vectors))*4, nil
}

// ReadFlatIndex parses data produced by WriteTo.
func ReadFlatIndex(r io.Reader) (*FlatIndex, error) {
	var header struct {
		Magic   [4]byte
		Version uint32
		Count   uint32
		Dim     uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorruptIndex, err)
	}
	if header.Magic != flatMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, header.Magic[:])
	}
	if header.Version != flatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, header.Version)
	}

	vectors, err := readMatrix(r, int(header.Count), int(header.Dim))
	if err != nil {
		return nil, err
	}
	return &FlatIndex{dim: int(header.Dim), vectors: vectors}, nil
}

func writeMatrix(w io.Writer, values []float32) error {
	if len(values) == 0 {
		return nil
	}
	if err := binary.Write(w, binary.LittleEndian, values); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	return nil
}

func readMatrix(r io.Reader, count, dim int) ([]float32, error) {
	total := uint64(count) * uint64(dim)
	if total > maxFlatValues {
		return nil, fmt.Errorf("%w: %d x %d matrix is too large", ErrCorruptIndex, count, dim)
	}
	values := make([]float32, total)
	if total == 0 {
		return values, nil
	}
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return nil, fmt.Errorf("%w: read vectors: %v", ErrCorruptIndex, err)
	}
	return values, nil
}
