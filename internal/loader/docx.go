package loader

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"course-rag/internal/models"
)

// docxStrategies lists the Word document extractors in priority order
func docxStrategies() []strategy {
	return []strategy{
		{name: "docx", load: loadDOCX},
		{name: "docxml", load: loadDOCXRaw},
	}
}

func loadDOCX(path string) ([]models.RawPage, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	text := extractWordText(r.Editable().GetContent())
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	// DOCX carries no page numbers
	return []models.RawPage{{Text: text, Page: 1}}, nil
}

// loadDOCXRaw reads word/document.xml straight out of the archive, for files
// the docx library rejects
func loadDOCXRaw(path string) ([]models.RawPage, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		text := extractWordText(string(data))
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []models.RawPage{{Text: text, Page: 1}}, nil
	}
	return nil, fmt.Errorf("word/document.xml not found in %s", path)
}

// extractWordText pulls the text runs out of WordprocessingML, one line per
// paragraph
func extractWordText(xmlContent string) string {
	var text strings.Builder
	rest := xmlContent
	for {
		start := strings.Index(rest, "<w:t")
		if start < 0 {
			break
		}
		// paragraph boundaries before this run become newlines
		if p := strings.Count(rest[:start], "</w:p>"); p > 0 && text.Len() > 0 {
			text.WriteString(strings.Repeat("\n", p))
		}
		rest = rest[start:]
		open := strings.Index(rest, ">")
		if open < 0 {
			break
		}
		// self-closing run carries no text
		if strings.HasSuffix(rest[:open+1], "/>") {
			rest = rest[open+1:]
			continue
		}
		rest = rest[open+1:]
		end := strings.Index(rest, "</w:t>")
		if end < 0 {
			break
		}
		text.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len("</w:t>"):]
	}
	return text.String()
}

func unescapeXML(s string) string {
	r := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
	return r.Replace(s)
}
