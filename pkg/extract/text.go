package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PlainText reads UTF-8 text; a form feed starts a new page
type PlainText struct{}

// ExtractPages implements Extractor
func (PlainText) ExtractPages(data []byte) ([]Page, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrUnparsable)
	}

	var pages []Page
	for i, text := range strings.Split(string(data), "\f") {
		pages = appendPage(pages, i+1, text)
	}
	return pages, nil
}
