package rag

import (
	"regexp"
	"strconv"
	"strings"

	"course-rag/internal/models"
)

var (
	ordinalRe = regexp.MustCompile(`^\s*(\d+)\s*[.、:：)）]\s*(.*)$`)
	thinkRe   = regexp.MustCompile(models.ThinkTag)
)

// stripThink removes reasoning blocks some chat models prepend to the answer
func stripThink(s string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(s, ""))
}

// parseRefined reads a numbered-list model response line by line. Lines
// starting with an ordinal open that ordinal's text; other lines continue the
// current one. Returns the per-ordinal texts plus a confidence flag that is
// false when any expected ordinal in 1..n is missing — the caller keeps the
// original fragment for those positions.
func parseRefined(response string, n int) (map[int]string, bool) {
	parsed := make(map[int]string)
	current := 0
	for _, line := range strings.Split(response, "\n") {
		if m := ordinalRe.FindStringSubmatch(line); m != nil {
			ordinal, err := strconv.Atoi(m[1])
			if err == nil && ordinal >= 1 && ordinal <= n {
				current = ordinal
				parsed[current] = m[2]
				continue
			}
		}
		if current != 0 {
			parsed[current] += "\n" + line
		}
	}

	confident := true
	for i := 1; i <= n; i++ {
		if strings.TrimSpace(parsed[i]) == "" {
			confident = false
		}
	}
	return parsed, confident
}
