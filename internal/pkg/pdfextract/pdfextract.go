package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrTooLarge = errors.New("pdf exceeds size limit")
	ErrNoText   = errors.New("pdf has no extractable text")
)

// ExtractText reads at most maxBytes from r and returns the plain text of the
// PDF with one blank line between pages.
func ExtractText(r io.Reader, maxBytes int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > maxBytes {
		return "", ErrTooLarge
	}
	if len(b) == 0 {
		return "", ErrNoText
	}
	doc, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d failed: %w", i, err)
		}
		if text = normalize(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
