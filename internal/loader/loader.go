// Package loader classifies course documents by format and extracts their
// text through an ordered chain of parser strategies, falling back to OCR
// for scanned or otherwise unreadable PDFs.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"course-rag/internal/models"
)

// ErrUnsupportedFormat is returned for any extension outside pdf/doc/docx
var ErrUnsupportedFormat = errors.New("unsupported file format")

// UnparsableError reports that every strategy in a chain was exhausted
type UnparsableError struct {
	Path      string
	Attempted []string
	Hint      string
}

func (e *UnparsableError) Error() string {
	msg := fmt.Sprintf("no parser extracted content from %s (tried: %s)",
		e.Path, strings.Join(e.Attempted, ", "))
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// Recognizer runs optical character recognition over a PDF
type Recognizer interface {
	Run(ctx context.Context, path string) ([]models.RawPage, error)
}

// strategy is a pure attempt to extract pages from a file
type strategy struct {
	name string
	load func(path string) ([]models.RawPage, error)
}

// Chain routes a file to format-specific strategy lists
type Chain struct {
	ocr Recognizer
}

func NewChain(ocr Recognizer) *Chain {
	return &Chain{ocr: ocr}
}

// Load extracts the pages of a document and reports the processing method
// used, either models.ProcessingNative or models.ProcessingOCR
func (c *Chain) Load(ctx context.Context, path string) ([]models.RawPage, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return c.loadPDF(ctx, path)
	case ".docx":
		pages, attempted := runStrategies(path, docxStrategies())
		if pages == nil {
			return nil, "", &UnparsableError{Path: path, Attempted: attempted}
		}
		return pages, models.ProcessingNative, nil
	case ".doc":
		pages, attempted := runStrategies(path, docStrategies(ctx))
		if pages == nil {
			return nil, "", &UnparsableError{
				Path:      path,
				Attempted: attempted,
				Hint:      "convert the file to .docx and try again",
			}
		}
		return pages, models.ProcessingNative, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func (c *Chain) loadPDF(ctx context.Context, path string) ([]models.RawPage, string, error) {
	if IsScanned(path) {
		log.Info().Str("file", path).Msg("scanned PDF detected, routing to OCR")
		pages, err := c.ocr.Run(ctx, path)
		if err != nil {
			return nil, "", err
		}
		return pages, models.ProcessingOCR, nil
	}

	pages, attempted := runStrategies(path, pdfStrategies())
	if pages != nil {
		return pages, models.ProcessingNative, nil
	}

	log.Warn().Str("file", path).Strs("attempted", attempted).
		Msg("native PDF extraction failed, falling back to OCR")
	ocrPages, err := c.ocr.Run(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return ocrPages, models.ProcessingOCR, nil
}

// runStrategies evaluates strategies in order and returns the first result
// with non-whitespace content on at least one page
func runStrategies(path string, strategies []strategy) ([]models.RawPage, []string) {
	attempted := make([]string, 0, len(strategies))
	for _, s := range strategies {
		attempted = append(attempted, s.name)
		pages, err := s.load(path)
		if err != nil {
			log.Debug().Err(err).Str("strategy", s.name).Str("file", path).
				Msg("parser strategy failed, trying next")
			continue
		}
		if hasContent(pages) {
			log.Info().Str("strategy", s.name).Str("file", path).
				Int("pages", len(pages)).Msg("parsed document")
			return pages, attempted
		}
		log.Debug().Str("strategy", s.name).Str("file", path).
			Msg("parser strategy produced no content, trying next")
	}
	return nil, attempted
}

func hasContent(pages []models.RawPage) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// countNonWhitespace counts the non-whitespace runes in s
func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !strings.ContainsRune(" \t\n\r\v\f", r) {
			n++
		}
	}
	return n
}
