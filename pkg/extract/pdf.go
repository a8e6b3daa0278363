package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the plain text of each page of a PDF document
type PDF struct{}

// ExtractPages implements Extractor. Malformed documents can make the PDF
// reader panic; that is reported as ErrUnparsable.
func (PDF) ExtractPages(data []byte) (pages []Page, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrUnparsable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnparsable, i, err)
		}
		pages = appendPage(pages, i, text)
	}
	return pages, nil
}
