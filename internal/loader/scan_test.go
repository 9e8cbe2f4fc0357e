package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyScan(t *testing.T) {
	tests := []struct {
		name    string
		counts  []int
		scanned bool
	}{
		{"all pages image-like", []int{10, 0, 49}, true},
		{"majority text-bearing", []int{120, 300, 10}, false},
		{"two of three image-like", []int{10, 20, 300}, true},
		{"single sparse page", []int{10}, true},
		{"single text page", []int{50}, false},
		{"two text pages", []int{80, 90}, false},
		{"two image-like pages", []int{5, 0}, true},
		{"one of two image-like", []int{5, 200}, false},
		{"no pages", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.scanned, classifyScan(tt.counts))
		})
	}
}

func TestCountNonWhitespace(t *testing.T) {
	assert.Equal(t, 0, countNonWhitespace(" \t\n\r "))
	assert.Equal(t, 4, countNonWhitespace(" a b\nc\td "))
	assert.Equal(t, 4, countNonWhitespace("操作 系统"))
}
