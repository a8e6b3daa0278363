package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashSize is the vector size used by NewHashing when none is given
const DefaultHashSize = 256

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Hashing is an offline embedder using signed feature hashing over
// lowercased word tokens. Vectors are L2-normalized; text without tokens
// embeds to the zero vector.
type Hashing struct {
	size int
}

// NewHashing returns a hashing embedder producing vectors of length size
func NewHashing(size int) *Hashing {
	if size <= 0 {
		size = DefaultHashSize
	}
	return &Hashing{size: size}
}

// Model implements Provider
func (h *Hashing) Model() string {
	return fmt.Sprintf("hashing-%d", h.size)
}

// EmbedBatch implements Provider
func (h *Hashing) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

// EmbedQuery implements Provider
func (h *Hashing) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *Hashing) embed(text string) []float32 {
	acc := make([]float64, h.size)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()

		idx := sum % uint64(h.size)
		if sum>>63 == 1 {
			acc[idx]--
		} else {
			acc[idx]++
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, h.size)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}
