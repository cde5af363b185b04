package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minTextLength is the threshold under which a text layer is considered
// unusable. Scanned documents often carry a handful of stray glyphs.
const minTextLength = 20

// ExtractText pulls the text layer out of a PDF file. Returns an empty
// string without error when the document has no usable text layer, which
// signals the caller to fall back to image rendering.
func ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text layer: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, textReader); err != nil {
		return "", fmt.Errorf("failed to read pdf text layer: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	if len(text) < minTextLength {
		return "", nil
	}
	return text, nil
}
