// Package store owns the durable embedding index: fragments are appended in
// atomic per-ingestion batches, enumerated by source and deleted by source.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the index store could not be reached
var ErrUnavailable = errors.New("vector index unavailable")

// fragment metadata keys
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaStart      = "start"
	MetaEnd        = "end"
	MetaChunk      = "chunk"
	MetaMethod     = "processing_method"
	MetaUploadTime = "upload_time"
)

// Doc is one fragment with its embedding, ready for the index
type Doc struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Hit pairs a stored fragment with its similarity to a query
type Hit struct {
	Content    string
	Metadata   map[string]string
	Similarity float32
}

// Index is the durable embedding index. Implementations must apply Add as
// one batch so a concurrent reader never observes part of an ingestion.
type Index interface {
	Add(ctx context.Context, docs []Doc) error
	Search(ctx context.Context, embedding []float32, k int) ([]Hit, error)
	ListSources(ctx context.Context) ([]SourceAggregate, error)
	DeleteSource(ctx context.Context, name string) error
	Close() error
}

// SourceAggregate is the per-source rollup produced by an Index
type SourceAggregate struct {
	Filename   string
	ChunkCount int
	UploadTime string
}
