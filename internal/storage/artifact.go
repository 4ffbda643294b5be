package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Files that make up one artifact directory. They are always loaded together
// and joined by position.
const (
	IndexFile      = "index.bin"
	TextsFile      = "texts.json"
	MetadataFile   = "metadata.json"
	EmbeddingsFile = "embeddings.bin"
	ConfigFile     = "config.json"
)

// Artifact is one searchable corpus snapshot: vectors, documents and manifest.
// Index row i always corresponds to Documents[i].
type Artifact struct {
	Index     *FlatIndex
	Documents []Document
	Manifest  Manifest
}

// metadataRecord is the on-disk shape of one metadata.json entry.
type metadataRecord struct {
	ID string `json:"id"`
	Metadata
}

// NewArtifact builds an artifact from documents and their embeddings.
// An empty corpus produces an empty, searchable artifact.
func NewArtifact(docs []Document, vectors [][]float32, model, source string, createdAt time.Time) (*Artifact, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("%w: %d documents but %d vectors", ErrCorruptIndex, len(docs), len(vectors))
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	index := NewFlatIndex(dim)
	if err := index.Add(vectors...); err != nil {
		return nil, err
	}

	return &Artifact{
		Index:     index,
		Documents: docs,
		Manifest: Manifest{
			ModelName:          model,
			NumTexts:           len(docs),
			EmbeddingDimension: dim,
			CreatedAt:          createdAt,
			SourceFile:         source,
			DataType:           DataTypePosts,
		},
	}, nil
}

// Len returns the number of documents.
func (a *Artifact) Len() int { return len(a.Documents) }

// Search returns the k nearest documents, best match first.
func (a *Artifact) Search(_ context.Context, query []float32, k int) ([]ScoredDocument, error) {
	hits, err := a.Index.Search(query, k)
	if err != nil {
		return nil, err
	}
	results := make([]ScoredDocument, len(hits))
	for i, h := range hits {
		results[i] = ScoredDocument{
			Position: h.Position,
			Document: a.Documents[h.Position],
			Distance: h.Distance,
		}
	}
	return results, nil
}

// Save writes the artifact into dir, replacing any previous files one by one.
// The manifest goes last so its presence marks a finished write.
func (a *Artifact) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	var indexBuf bytes.Buffer
	if _, err := a.Index.WriteTo(&indexBuf); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := writeFileAtomic(dir, IndexFile, indexBuf.Bytes()); err != nil {
		return err
	}

	texts := make([]string, len(a.Documents))
	records := make([]metadataRecord, len(a.Documents))
	for i, doc := range a.Documents {
		texts[i] = doc.Text
		records[i] = metadataRecord{ID: doc.ID, Metadata: doc.Metadata}
	}
	if err := writeJSON(dir, TextsFile, texts); err != nil {
		return err
	}
	if err := writeJSON(dir, MetadataFile, records); err != nil {
		return err
	}

	var embBuf bytes.Buffer
	if err := writeMatrix(&embBuf, a.Index.vectors); err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}
	if err := writeFileAtomic(dir, EmbeddingsFile, embBuf.Bytes()); err != nil {
		return err
	}

	return writeJSON(dir, ConfigFile, a.Manifest)
}

// Load reads an artifact directory. A missing index.bin is rebuilt from
// embeddings.bin when the manifest records the dimension.
func Load(dir string) (*Artifact, error) {
	var manifest Manifest
	if err := readJSON(dir, ConfigFile, &manifest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var texts []string
	if err := readJSON(dir, TextsFile, &texts); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
		}
		return nil, err
	}

	var records []metadataRecord
	if err := readJSON(dir, MetadataFile, &records); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
		}
		return nil, err
	}

	index, err := loadIndex(dir, manifest, len(texts))
	if err != nil {
		return nil, err
	}

	if len(texts) != len(records) || index.Len() != len(texts) {
		return nil, fmt.Errorf("%w: %d texts, %d metadata records, %d vectors",
			ErrCorruptIndex, len(texts), len(records), index.Len())
	}

	docs := make([]Document, len(texts))
	for i := range texts {
		docs[i] = Document{ID: records[i].ID, Text: texts[i], Metadata: records[i].Metadata}
	}

	return &Artifact{Index: index, Documents: docs, Manifest: manifest}, nil
}

func loadIndex(dir string, manifest Manifest, count int) (*FlatIndex, error) {
	f, err := os.Open(filepath.Join(dir, IndexFile))
	if err == nil {
		defer f.Close()
		return ReadFlatIndex(f)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open index: %w", err)
	}

	// Re-index from the raw embedding matrix.
	if manifest.EmbeddingDimension <= 0 && count > 0 {
		return nil, fmt.Errorf("%w: %s missing and manifest has no dimension", ErrIndexNotFound, IndexFile)
	}
	e, err := os.Open(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: neither %s nor %s in %s", ErrIndexNotFound, IndexFile, EmbeddingsFile, dir)
		}
		return nil, fmt.Errorf("open embeddings: %w", err)
	}
	defer e.Close()

	vectors, err := readMatrix(e, count, manifest.EmbeddingDimension)
	if err != nil {
		return nil, err
	}
	return &FlatIndex{dim: manifest.EmbeddingDimension, vectors: vectors}, nil
}

func writeJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return writeFileAtomic(dir, name, data)
}

func readJSON(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrCorruptIndex, name, err)
	}
	return nil
}

func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
