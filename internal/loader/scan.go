package loader

import (
	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

const (
	// pages examined when deciding whether a PDF is a scan
	scanSamplePages = 3
	// a page with fewer non-whitespace characters than this is image-like
	scanMinChars = 50
)

// IsScanned heuristically decides whether a PDF is a scanned image rather
// than text-bearing. It examines at most the first 3 pages; a page is
// image-like when its embedded text has fewer than 50 non-whitespace
// characters. False negatives only cost extra OCR time, so errors while
// opening or reading the document report "not scanned".
func IsScanned(path string) bool {
	doc, err := fitz.New(path)
	if err != nil {
		log.Debug().Err(err).Str("file", path).Msg("scan detection could not open PDF")
		return false
	}
	defer doc.Close()

	examine := doc.NumPage()
	if examine > scanSamplePages {
		examine = scanSamplePages
	}

	counts := make([]int, 0, examine)
	for i := 0; i < examine; i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Debug().Err(err).Int("page", i+1).Msg("scan detection could not read page")
			text = ""
		}
		counts = append(counts, countNonWhitespace(text))
	}
	return classifyScan(counts)
}

// classifyScan reports scanned when at least half of the examined pages are
// image-like: two pages, or every page when fewer than two were examined.
func classifyScan(counts []int) bool {
	if len(counts) == 0 {
		return false
	}
	imageLike := 0
	for _, c := range counts {
		if c < scanMinChars {
			imageLike++
		}
	}
	need := 2
	if len(counts) < need {
		need = len(counts)
	}
	return imageLike >= need
}
