package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"

	"course-rag/internal/models"
)

// docStrategies lists the legacy .doc extractors in priority order:
// the OLE compound-file reader, then platform text-conversion utilities,
// then a raw printable-byte salvage
func docStrategies(ctx context.Context) []strategy {
	strategies := []strategy{
		{name: "mscfb", load: loadDOCCompound},
	}
	for _, tool := range docConvertTools() {
		tool := tool
		strategies = append(strategies, strategy{
			name: tool,
			load: func(path string) ([]models.RawPage, error) {
				return loadDOCExternal(ctx, tool, path)
			},
		})
	}
	strategies = append(strategies, strategy{name: "salvage", load: loadDOCSalvage})
	return strategies
}

// docConvertTools returns the OS text converters worth trying on this host
func docConvertTools() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{"antiword", "catdoc"}
	case "darwin":
		return []string{"textutil"}
	default:
		return nil
	}
}

// loadDOCCompound reads the WordDocument stream of the OLE container and
// salvages its readable text
func loadDOCCompound(path string) ([]models.RawPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return nil, err
	}

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != "WordDocument" {
			continue
		}
		data, err := io.ReadAll(entry)
		if err != nil {
			return nil, err
		}
		text := salvageText(data)
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []models.RawPage{{Text: text, Page: 1}}, nil
	}
	return nil, fmt.Errorf("no WordDocument stream in %s", path)
}

func loadDOCExternal(ctx context.Context, tool, path string) ([]models.RawPage, error) {
	var cmd *exec.Cmd
	switch tool {
	case "textutil":
		cmd = exec.CommandContext(ctx, tool, "-convert", "txt", "-stdout", path)
	default:
		cmd = exec.CommandContext(ctx, tool, path)
	}
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %v", tool, err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return nil, nil
	}
	return []models.RawPage{{Text: string(out), Page: 1}}, nil
}

func loadDOCSalvage(path string) ([]models.RawPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := salvageText(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []models.RawPage{{Text: text, Page: 1}}, nil
}

// minimum run of consecutive readable characters kept by salvageText
const salvageMinRun = 4

// salvageText extracts the readable character runs from a binary Word
// stream. Legacy files store text either as single-byte CP-1252 or UTF-16LE
// depending on the piece table; rather than parse the FIB we keep runs of
// printable characters from both decodings, preferring whichever yields more.
func salvageText(data []byte) string {
	single := salvageRuns(decodeSingleByte(data))
	wide := salvageRuns(decodeUTF16LE(data))
	if countNonWhitespace(wide) > countNonWhitespace(single) {
		return wide
	}
	return single
}

func decodeSingleByte(data []byte) []rune {
	runes := make([]rune, 0, len(data))
	for _, b := range data {
		runes = append(runes, rune(b))
	}
	return runes
}

func decodeUTF16LE(data []byte) []rune {
	if len(data) < 2 {
		return nil
	}
	u16 := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u16 = append(u16, uint16(data[i])|uint16(data[i+1])<<8)
	}
	return utf16.Decode(u16)
}

// salvageRuns keeps maximal runs of printable characters of at least
// salvageMinRun length, separated by newlines
func salvageRuns(runes []rune) string {
	var out strings.Builder
	var run []rune
	flush := func() {
		if len(run) >= salvageMinRun {
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
			out.WriteString(string(run))
		}
		run = run[:0]
	}
	for _, r := range runes {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			run = append(run, r)
		} else {
			flush()
		}
	}
	flush()
	return out.String()
}
