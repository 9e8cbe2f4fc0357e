package store

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemIndex is the default Index backend, a chromem-go collection
// persisted on local disk.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc

	// cached query vector for metadata enumeration, so listing sources does
	// not need an embedding round-trip
	mu      sync.Mutex
	enumEmb []float32
}

// NewChromemIndex opens (or creates) a persistent collection at dbPath. With
// inMemory set the index lives only for the process, which tests use.
func NewChromemIndex(dbPath, collectionName string, inMemory bool, embedFunc chromem.EmbeddingFunc) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &ChromemIndex{db: db, collection: collection, embedFunc: embedFunc}, nil
}

func (m *ChromemIndex) Add(ctx context.Context, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}
	if err := m.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}

	// any stored embedding has the right dimensionality for enumeration
	m.mu.Lock()
	if m.enumEmb == nil && len(docs[0].Embedding) > 0 {
		m.enumEmb = docs[0].Embedding
	}
	m.mu.Unlock()
	return nil
}

func (m *ChromemIndex) Search(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem requires nResults <= collection size
	if k > count {
		k = count
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// ListSources aggregates the whole collection by source filename. chromem has
// no enumeration API, so it is queried with the collection size as the result
// limit, using a cached query embedding to stay off the embedding API.
func (m *ChromemIndex) ListSources(ctx context.Context) ([]SourceAggregate, error) {
	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}

	emb, err := m.enumEmbedding(ctx)
	if err != nil {
		return nil, err
	}
	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: emb,
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate collection: %v", err)
	}

	byName := make(map[string]*SourceAggregate)
	var order []string
	for _, r := range results {
		name := r.Metadata[MetaSource]
		agg, ok := byName[name]
		if !ok {
			agg = &SourceAggregate{Filename: name}
			byName[name] = agg
			order = append(order, name)
		}
		agg.ChunkCount++
		if t := r.Metadata[MetaUploadTime]; t > agg.UploadTime {
			agg.UploadTime = t
		}
	}

	aggregates := make([]SourceAggregate, 0, len(order))
	for _, name := range order {
		aggregates = append(aggregates, *byName[name])
	}
	return aggregates, nil
}

// enumEmbedding returns the cached enumeration vector, seeded by Add or, for
// a collection restored from disk, computed once through the embedding func
func (m *ChromemIndex) enumEmbedding(ctx context.Context) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enumEmb != nil {
		return m.enumEmb, nil
	}
	emb, err := m.embedFunc(ctx, "课程资料")
	if err != nil {
		return nil, fmt.Errorf("failed to embed enumeration query: %v", err)
	}
	m.enumEmb = emb
	return emb, nil
}

func (m *ChromemIndex) DeleteSource(ctx context.Context, name string) error {
	if m.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{MetaSource: name}
	if err := m.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete source %s: %v", name, err)
	}
	return nil
}

func (m *ChromemIndex) Close() error {
	return nil
}
