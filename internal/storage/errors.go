package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrIndexNotFound     = errors.New("index artifact not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrModelMismatch     = errors.New("embedding model mismatch")
	ErrCorruptIndex      = errors.New("index artifact is inconsistent")
)
