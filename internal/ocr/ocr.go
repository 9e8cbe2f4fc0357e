// Package ocr rasterizes PDF pages and recognizes their text with tesseract,
// for scanned documents the native parsers cannot read.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"course-rag/internal/config"
	"course-rag/internal/models"
)

// ErrNoText is returned when recognition yields no text on any page
var ErrNoText = errors.New("ocr produced no text")

// base PDF rendering resolution, scaled up before recognition
const baseDPI = 72

// Engine runs OCR over whole PDF documents
type Engine struct {
	languages []string
	scale     float64
}

func NewEngine(cfg config.OCRConfig) *Engine {
	return &Engine{
		languages: strings.Split(cfg.Languages, "+"),
		scale:     cfg.Scale,
	}
}

// Run rasterizes every page at the configured scale, preprocesses the raster
// and recognizes its text. Pages with empty output are logged and dropped;
// ErrNoText is returned when no page yields text. All raster buffers are
// written under a temp dir that is removed on every exit path.
func (e *Engine) Run(ctx context.Context, path string) ([]models.RawPage, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for OCR: %w", err)
	}
	defer doc.Close()

	tmpDir, err := os.MkdirTemp("", "course-rag-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("failed to set OCR languages: %w", err)
	}
	// one uniform block of text per page
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, fmt.Errorf("failed to set OCR segmentation mode: %w", err)
	}

	var pages []models.RawPage
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(i, baseDPI*e.scale)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize page %d: %w", i+1, err)
		}

		cleaned := Preprocess(img)

		rasterPath := filepath.Join(tmpDir, fmt.Sprintf("page-%04d.png", i+1))
		f, err := os.Create(rasterPath)
		if err != nil {
			return nil, err
		}
		err = png.Encode(f, cleaned)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to encode page %d raster: %w", i+1, err)
		}

		if err := client.SetImage(rasterPath); err != nil {
			return nil, fmt.Errorf("failed to load page %d raster: %w", i+1, err)
		}
		text, err := client.Text()
		if err != nil {
			return nil, fmt.Errorf("recognition failed on page %d: %w", i+1, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			log.Warn().Int("page", i+1).Str("file", path).Msg("OCR yielded no text, dropping page")
			continue
		}
		log.Debug().Int("page", i+1).Int("chars", len(text)).Msg("OCR recognized page")
		pages = append(pages, models.RawPage{Text: text, Page: i + 1})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return pages, nil
}
