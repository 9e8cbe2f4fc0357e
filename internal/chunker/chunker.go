// Package chunker splits extracted page text into overlapping fixed-size
// fragments carrying provenance offsets.
package chunker

import "course-rag/internal/models"

// Split walks a sliding window over each page's text: fragments are size
// characters long and consecutive fragments overlap by overlap characters,
// except the final fragment of a page. Offsets are character positions, so a
// window never cuts a multi-byte rune. A page shorter than size yields
// exactly one fragment. When overlap >= size the walk still makes forward
// progress instead of re-emitting the same window. Output order is
// deterministic.
func Split(pages []models.RawPage, size, overlap int) []models.Fragment {
	if size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	var fragments []models.Fragment
	for _, page := range pages {
		fragments = append(fragments, splitPage(page, size, overlap)...)
	}
	return fragments
}

func splitPage(page models.RawPage, size, overlap int) []models.Fragment {
	runes := []rune(page.Text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	if step <= 0 {
		// overlap swallows the whole window; force progress
		step = size
	}

	var fragments []models.Fragment
	index := 0
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		fragments = append(fragments, models.Fragment{
			Text:  string(runes[start:end]),
			Page:  page.Page,
			Start: start,
			End:   end,
			Index: index,
		})
		index++
		if end == len(runes) {
			break
		}
	}
	return fragments
}
