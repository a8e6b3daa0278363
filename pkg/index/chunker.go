package index

import (
	"fmt"
	"strings"
)

// Chunker splits page text into fixed-size overlapping windows measured
// in runes
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker validates size and overlap
func NewChunker(size, overlap int) (Chunker, error) {
	if size <= 0 {
		return Chunker{}, fmt.Errorf("index: chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return Chunker{}, fmt.Errorf("index: chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return Chunker{Size: size, Overlap: overlap}, nil
}

// Split collapses whitespace and cuts the text into windows of Size runes.
// Consecutive windows share Overlap runes; empty windows are dropped.
func (c Chunker) Split(text string) []string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := min(len(runes), start+c.Size)
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}
		start = max(start+1, end-c.Overlap)
	}
	return chunks
}
