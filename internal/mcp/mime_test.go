package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

func TestMimeTypeForLanguage(t *testing.T) {
	tests := []struct {
		lang     string
		expected string
	}{
		{"go", "text/x-go"},
		{"Python", "text/x-python"},
		{"cpp", "text/x-c++"},
		{"markdown", "text/markdown"},
		{"generic", "text/plain"},
		{"cobol", "text/plain"},
		{"", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.expected, MimeTypeForLanguage(tt.lang))
		})
	}
}

func TestMimeTypeForLanguage_CoversRegistry(t *testing.T) {
	for _, name := range chunk.Languages() {
		if name == chunk.GenericLanguage {
			continue
		}
		assert.NotEqual(t, "text/plain", MimeTypeForLanguage(name), name)
	}
}
