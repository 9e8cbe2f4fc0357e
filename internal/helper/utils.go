package helper

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// characters not allowed in a stored source filename
const unsafeFilenameChars = `<>:"/\|?*`

// SanitizeFilename replaces unsafe characters with underscores and caps the
// name at 100 characters while keeping the extension
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafeFilenameChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	name = b.String()
	if runes := []rune(name); len(runes) > 100 {
		ext := filepath.Ext(name)
		if len(ext) >= 100 {
			ext = ""
		}
		name = string(runes[:100-len(ext)]) + ext
	}
	return name
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
