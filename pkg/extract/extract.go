// Package extract turns uploaded document bytes into page-numbered text.
package extract

import (
	"bytes"
	"errors"
	"strings"
)

var (
	// ErrEmptyInput is returned for zero-length documents
	ErrEmptyInput = errors.New("extract: empty input")

	// ErrUnparsable is returned when the bytes are not a readable document
	ErrUnparsable = errors.New("extract: unparsable document")
)

// Page is the text of one page. Numbers start at 1.
type Page struct {
	Number int
	Text   string
}

// Extractor converts raw document bytes into pages. Pages without text
// are omitted.
type Extractor interface {
	ExtractPages(data []byte) ([]Page, error)
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc func(data []byte) ([]Page, error)

// ExtractPages calls f(data)
func (f ExtractorFunc) ExtractPages(data []byte) ([]Page, error) {
	return f(data)
}

var pdfMagic = []byte("%PDF-")

// Auto dispatches on content: PDF for bytes starting with the PDF magic,
// plain text otherwise.
type Auto struct {
	PDF  Extractor
	Text Extractor
}

// NewAuto returns an Auto using the package's PDF and PlainText extractors
func NewAuto() *Auto {
	return &Auto{PDF: PDF{}, Text: PlainText{}}
}

// ExtractPages implements Extractor
func (a *Auto) ExtractPages(data []byte) ([]Page, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic) {
		return a.PDF.ExtractPages(data)
	}
	return a.Text.ExtractPages(data)
}

func appendPage(pages []Page, number int, text string) []Page {
	if strings.TrimSpace(text) == "" {
		return pages
	}
	return append(pages, Page{Number: number, Text: text})
}
