// Package ingest drives one document through the loader chain, the chunker
// and into the vector store. Ingestion is all-or-nothing per file: any
// failure surfaces to the caller and nothing is indexed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"course-rag/internal/chunker"
	"course-rag/internal/helper"
	"course-rag/internal/models"
)

// ErrEmptyAfterChunking is returned when the extracted text is entirely
// whitespace
var ErrEmptyAfterChunking = errors.New("document empty after chunking")

// Loader extracts pages from a document and reports the processing method
type Loader interface {
	Load(ctx context.Context, path string) ([]models.RawPage, string, error)
}

// Store accepts embedded fragment batches for a source
type Store interface {
	Replace(ctx context.Context, source, method string, fragments []models.Fragment) error
}

// Pipeline is the ingestion flow over a shared index
type Pipeline struct {
	loader    Loader
	store     Store
	chunkSize int
	overlap   int
}

func NewPipeline(loader Loader, store Store, chunkSize, overlap int) *Pipeline {
	return &Pipeline{
		loader:    loader,
		store:     store,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Ingest parses, chunks, embeds and indexes one file. Re-ingesting a file
// with the same name replaces its previous fragments.
func (p *Pipeline) Ingest(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("document not readable: %w", err)
	}

	pages, method, err := p.loader.Load(ctx, path)
	if err != nil {
		return err
	}

	fragments := chunker.Split(pages, p.chunkSize, p.overlap)
	fragments = dropBlank(fragments)
	if len(fragments) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyAfterChunking, path)
	}

	source := helper.SanitizeFilename(filepath.Base(path))
	log.Info().Str("source", source).Str("method", method).
		Int("pages", len(pages)).Int("fragments", len(fragments)).
		Msg("ingesting document")

	return p.store.Replace(ctx, source, method, fragments)
}

// dropBlank filters whitespace-only fragments before indexing
func dropBlank(fragments []models.Fragment) []models.Fragment {
	kept := fragments[:0:0]
	for _, frag := range fragments {
		if strings.TrimSpace(frag.Text) != "" {
			kept = append(kept, frag)
		}
	}
	return kept
}
