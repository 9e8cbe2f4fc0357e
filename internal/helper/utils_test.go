package helper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean ascii", "syllabus.pdf", "syllabus.pdf"},
		{"chinese kept", "操作系统讲义.docx", "操作系统讲义.docx"},
		{"path separators", `lectures/week1\intro.pdf`, "lectures_week1_intro.pdf"},
		{"shell metacharacters", `what?is<this>:"file"|*.doc`, "what_is_this___file___.doc"},
		{"spaces kept", "final exam 2024.pdf", "final exam 2024.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSanitizeFilenameCapsLengthKeepingExtension(t *testing.T) {
	long := strings.Repeat("课", 200) + ".pdf"
	got := SanitizeFilename(long)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
	assert.LessOrEqual(t, len([]rune(got)), 100)
}
