package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	pages, err := PlainText{}.ExtractPages([]byte("first page\fsecond page\f   \ffourth"))
	require.NoError(t, err)
	assert.Equal(t, []Page{
		{Number: 1, Text: "first page"},
		{Number: 2, Text: "second page"},
		{Number: 4, Text: "fourth"},
	}, pages)

	_, err = PlainText{}.ExtractPages(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = PlainText{}.ExtractPages([]byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestPDFRejectsGarbage(t *testing.T) {
	_, err := PDF{}.ExtractPages([]byte("%PDF-1.4\nthis is not really a pdf"))
	assert.ErrorIs(t, err, ErrUnparsable)

	_, err = PDF{}.ExtractPages(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestAutoDispatch(t *testing.T) {
	var sawPDF, sawText bool
	auto := &Auto{
		PDF: ExtractorFunc(func([]byte) ([]Page, error) {
			sawPDF = true
			return nil, nil
		}),
		Text: ExtractorFunc(func([]byte) ([]Page, error) {
			sawText = true
			return nil, nil
		}),
	}

	_, err := auto.ExtractPages([]byte("%PDF-1.7 ..."))
	require.NoError(t, err)
	assert.True(t, sawPDF)
	assert.False(t, sawText)

	_, err = auto.ExtractPages([]byte("lecture notes"))
	require.NoError(t, err)
	assert.True(t, sawText)

	_, err = auto.ExtractPages(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewAutoReadsText(t *testing.T) {
	pages, err := NewAuto().ExtractPages([]byte("week 1\fweek 2"))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 2, pages[1].Number)
}
