package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor returns the plain text of a document.
type TextExtractor func(data []byte) (string, error)

// PlainText reads every page of a PDF and returns its text.
func PlainText(data []byte) (text string, err error) {
	// the reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	b, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(b)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
