package readers

import (
	"fmt"
	"os"
	"strings"
)

type TxtFileReader struct{}

func (r *TxtFileReader) CanRead(path string) bool {
	return isPlain(path)
}

func (r *TxtFileReader) ReadText(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}

	return strings.ToValidUTF8(string(buf), "�"), nil
}

