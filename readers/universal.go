package readers

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
)

var supported = map[string]bool{
	".txt":  true,
	".md":   true,
	".docx": true,
	".odt":  true,
	".pdf":  true,
	".rtf":  true,
	".xml":  true,
	".html": true,
}

// UniversalFileReader extracts plain text from office documents, PDFs and text files.
type UniversalFileReader struct {
}

func (r *UniversalFileReader) CanRead(path string) bool {
	return supported[strings.ToLower(filepath.Ext(path))]
}

func (r *UniversalFileReader) ReadText(path string) (string, error) {
	if isPlain(path) {
		return (&TxtFileReader{}).ReadText(path)
	}

	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	return res.Body, nil
}

// Extract converts uploaded content, picking the converter by filename.
func (r *UniversalFileReader) Extract(content io.Reader, filename string) (string, error) {
	if !r.CanRead(filename) {
		return "", fmt.Errorf("unsupported document type: %s", filepath.Ext(filename))
	}

	if isPlain(filename) {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(content); err != nil {
			return "", fmt.Errorf("failed to read document: %w", err)
		}

		return buf.String(), nil
	}

	res, err := docconv.Convert(content, docconv.MimeTypeByExtension(filename), false)
	if err != nil {
		return "", fmt.Errorf("failed to convert %s: %w", filename, err)
	}

	return res.Body, nil
}

func isPlain(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".md"
}
