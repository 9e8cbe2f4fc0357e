package loader

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-rag/internal/models"
)

type stubOCR struct {
	pages []models.RawPage
	err   error
	calls int
}

func (s *stubOCR) Run(_ context.Context, _ string) ([]models.RawPage, error) {
	s.calls++
	return s.pages, s.err
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	chain := NewChain(&stubOCR{})
	for _, name := range []string{"notes.txt", "slides.pptx", "table.xlsx", "archive"} {
		_, _, err := chain.Load(context.Background(), name)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
	}
}

func TestLoadDOCXThroughChain(t *testing.T) {
	path := writeMinimalDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>操作系统是管理计算机硬件与软件资源的程序。</w:t></w:r></w:p>
<w:p><w:r><w:t>Scheduling decides which process runs next.</w:t></w:r></w:p>
</w:body></w:document>`)

	ocr := &stubOCR{}
	chain := NewChain(ocr)
	pages, method, err := chain.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingNative, method)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Text, "操作系统是管理计算机硬件与软件资源的程序。")
	assert.Contains(t, pages[0].Text, "Scheduling decides which process runs next.")
	assert.Equal(t, 1, pages[0].Page)
	assert.Zero(t, ocr.calls)
}

func TestLoadDOCXEmptyBodyUnparsable(t *testing.T) {
	path := writeMinimalDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p></w:p></w:body></w:document>`)

	chain := NewChain(&stubOCR{})
	_, _, err := chain.Load(context.Background(), path)
	var unparsable *UnparsableError
	require.ErrorAs(t, err, &unparsable)
	assert.Equal(t, []string{"docx", "docxml"}, unparsable.Attempted)
}

func TestLoadDOCUnparsableAdvisesConversion(t *testing.T) {
	// a .doc that is not an OLE container and has no salvageable text
	path := filepath.Join(t.TempDir(), "legacy.doc")
	junk := make([]byte, 64)
	require.NoError(t, os.WriteFile(path, junk, 0o644))

	chain := NewChain(&stubOCR{})
	_, _, err := chain.Load(context.Background(), path)
	var unparsable *UnparsableError
	require.ErrorAs(t, err, &unparsable)
	assert.Contains(t, unparsable.Error(), ".docx")
	assert.Contains(t, unparsable.Attempted, "mscfb")
	assert.Contains(t, unparsable.Attempted, "salvage")
}

func TestExtractWordText(t *testing.T) {
	xml := `<w:p><w:r><w:t xml:space="preserve">first </w:t></w:r>` +
		`<w:r><w:t>run</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>second &amp; third</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t/></w:r></w:p>`
	assert.Equal(t, "first run\nsecond & third", extractWordText(xml))
}

func TestSalvageTextPrefersWiderDecoding(t *testing.T) {
	// UTF-16LE payload should win over its single-byte misreading
	utf16Payload := encodeUTF16LE("课程大纲：进程与线程管理基础知识")
	text := salvageText(utf16Payload)
	assert.Contains(t, text, "课程大纲")

	singleByte := []byte("plain ascii lecture notes\x00\x01more text here")
	text = salvageText(singleByte)
	assert.Contains(t, text, "plain ascii lecture notes")
	assert.Contains(t, text, "more text here")
}

func writeMinimalDocx(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lecture.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   documentXML,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func encodeUTF16LE(s string) []byte {
	var out []byte
	for _, r := range s {
		if r > 0xFFFF {
			continue
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(r))
	}
	return out
}
