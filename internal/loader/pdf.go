package loader

import (
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"course-rag/internal/models"
)

// pdfStrategies lists the native PDF text extractors in priority order
func pdfStrategies() []strategy {
	return []strategy{
		{name: "mupdf", load: loadPDFMuPDF},
		{name: "pdftext", load: loadPDFNative},
	}
}

func loadPDFMuPDF(path string) ([]models.RawPage, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var pages []models.RawPage
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, models.RawPage{Text: text, Page: i + 1})
	}
	return pages, nil
}

func loadPDFNative(path string) ([]models.RawPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var pages []models.RawPage
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		pages = append(pages, models.RawPage{Text: text, Page: i})
	}
	return pages, nil
}
