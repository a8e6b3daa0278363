package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerSplit(t *testing.T) {
	c, err := NewChunker(10, 3)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", " \n\t ", nil},
		{"shorter than window", "  hi \n world ", []string{"hi world"}},
		{"one rune past window", "hello world", []string{"hello worl", "orld"}},
		{"exact window", "abcdefghij", []string{"abcdefghij"}},
		{"overlapping windows", "abcdefghijklmnopq", []string{"abcdefghij", "hijklmnopq"}},
		{"trailing fragment", "abcdefghijklmnopqrs", []string{"abcdefghij", "hijklmnopq", "opqrs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Split(tt.text))
		})
	}
}

func TestChunkerCountsRunes(t *testing.T) {
	c, err := NewChunker(4, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"数据结构", "与算法"}, c.Split("数据结构与算法"))
}

func TestChunkerCoversText(t *testing.T) {
	c, err := NewChunker(1000, 150)
	require.NoError(t, err)

	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch)), 1000)
	}
	assert.True(t, strings.HasPrefix(text, chunks[0]))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), chunks[len(chunks)-1]))
}

func TestNewChunkerValidation(t *testing.T) {
	_, err := NewChunker(0, 0)
	assert.Error(t, err)
	_, err = NewChunker(10, 10)
	assert.Error(t, err)
	_, err = NewChunker(10, -1)
	assert.Error(t, err)
}
