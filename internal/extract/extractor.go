// Package extract turns knowledge documents into plain text for prompts.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type extractFunc func(content []byte) (string, error)

// formats maps a lower-case extension to its extractor. Anything else is read as plain text.
var formats = map[string]extractFunc{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".xlsx": extractExcel,
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// supported reports whether ext has a dedicated binary extractor.
func supported(ext string) bool {
	_, ok := formats[strings.ToLower(ext)]
	return ok
}

// Extract reads the file at path and returns its text. The returned error wraps
// the os error when the file cannot be read, so callers can test for os.ErrNotExist.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content according to ext (with the leading dot).
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if fn, ok := formats[strings.ToLower(ext)]; ok {
		return fn(content)
	}
	return extractPlain(content)
}
