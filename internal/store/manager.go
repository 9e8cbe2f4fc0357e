package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"course-rag/internal/embedding"
	"course-rag/internal/helper"
	"course-rag/internal/models"
)

// Manager owns all mutations of the index. Mutations for one source are
// mutually exclusive so a delete-then-readd cannot interleave into duplicate
// or half-purged fragments; reads do not take source locks. Embedding and
// OCR happen outside any lock.
type Manager struct {
	idx       Index
	embedder  embedding.Embedder
	uploadDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(idx Index, embedder embedding.Embedder, uploadDir string) *Manager {
	return &Manager{
		idx:       idx,
		embedder:  embedder,
		uploadDir: uploadDir,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockSource(name string) func() {
	m.mu.Lock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Add embeds every fragment, attaches source metadata and appends the batch
// to the index. It never deduplicates: callers must purge an existing source
// first (or use Replace).
func (m *Manager) Add(ctx context.Context, source, method string, fragments []models.Fragment) error {
	docs, err := m.buildDocs(ctx, source, method, fragments)
	if err != nil {
		return err
	}
	unlock := m.lockSource(source)
	defer unlock()
	if err := m.idx.Add(ctx, docs); err != nil {
		return err
	}
	log.Info().Str("source", source).Int("fragments", len(docs)).Msg("indexed document")
	return nil
}

// Replace purges any existing fragments of the source and appends the new
// batch under one source lock, so no reader window sees both generations.
func (m *Manager) Replace(ctx context.Context, source, method string, fragments []models.Fragment) error {
	docs, err := m.buildDocs(ctx, source, method, fragments)
	if err != nil {
		return err
	}
	unlock := m.lockSource(source)
	defer unlock()
	if err := m.removeSource(ctx, source); err != nil {
		return err
	}
	if err := m.idx.Add(ctx, docs); err != nil {
		return err
	}
	log.Info().Str("source", source).Int("fragments", len(docs)).Msg("indexed document")
	return nil
}

func (m *Manager) buildDocs(ctx context.Context, source, method string, fragments []models.Fragment) ([]Doc, error) {
	texts := make([]string, len(fragments))
	for i, frag := range fragments {
		texts[i] = frag.Text
	}
	vectors, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed fragments: %w", err)
	}
	if len(vectors) != len(fragments) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d fragments", len(vectors), len(fragments))
	}

	uploadTime := time.Now().Format(models.UploadTimeLayout)
	docs := make([]Doc, len(fragments))
	for i, frag := range fragments {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		docs[i] = Doc{
			ID:      id,
			Content: frag.Text,
			Metadata: map[string]string{
				MetaSource:     source,
				MetaPage:       strconv.Itoa(frag.Page),
				MetaStart:      strconv.Itoa(frag.Start),
				MetaEnd:        strconv.Itoa(frag.End),
				MetaChunk:      strconv.Itoa(frag.Index),
				MetaMethod:     method,
				MetaUploadTime: uploadTime,
			},
			Embedding: vectors[i],
		}
	}
	return docs, nil
}

// DeleteSource removes every fragment of the source and its tracked upload
// artifact. Deleting an absent source is a no-op.
func (m *Manager) DeleteSource(ctx context.Context, name string) error {
	unlock := m.lockSource(name)
	defer unlock()
	return m.removeSource(ctx, name)
}

func (m *Manager) removeSource(ctx context.Context, name string) error {
	if err := m.idx.DeleteSource(ctx, name); err != nil {
		return err
	}
	if m.uploadDir != "" {
		path := filepath.Join(m.uploadDir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", path).Msg("could not remove upload artifact")
		}
	}
	return nil
}

// ListSources aggregates all fragments by source name, most recent first
func (m *Manager) ListSources(ctx context.Context) ([]models.SourceInfo, error) {
	aggregates, err := m.idx.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	infos := make([]models.SourceInfo, len(aggregates))
	for i, agg := range aggregates {
		infos[i] = models.SourceInfo{
			Filename:   agg.Filename,
			ChunkCount: agg.ChunkCount,
			UploadTime: agg.UploadTime,
		}
	}
	sortSourcesByUploadTime(infos)
	return infos, nil
}

func sortSourcesByUploadTime(infos []models.SourceInfo) {
	// newest first; name breaks ties so output is deterministic
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].UploadTime != infos[j].UploadTime {
			return infos[i].UploadTime > infos[j].UploadTime
		}
		return infos[i].Filename < infos[j].Filename
	})
}

// Search embeds the query and returns the k nearest fragments
func (m *Manager) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	vector, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := m.idx.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return hits, nil
}

func (m *Manager) Close() error {
	return m.idx.Close()
}
