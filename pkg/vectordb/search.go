package vectordb

import (
	"context"
	"fmt"
	"sort"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/encoding"
)

// QueryOptions controls a nearest-neighbour query
type QueryOptions struct {
	// TopK is the exact number of matches wanted
	TopK int
	// Filter restricts candidates by metadata equality
	Filter map[string]string
}

// Match is a query result
type Match struct {
	Embedding
	// Distance is the cosine distance to the query vector
	Distance float64
}

// Query returns the TopK embeddings closest to vector, nearest first. It
// fails with *InsufficientCandidatesError when fewer than TopK candidates
// of the query's dimension match the filter.
func (s *Store) Query(ctx context.Context, collection string, vector []float32, opts QueryOptions) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("query"); err != nil {
		return nil, err
	}
	if err := encoding.ValidateVector(vector); err != nil {
		return nil, wrapError("query", err)
	}
	if opts.TopK <= 0 {
		return nil, wrapError("query", fmt.Errorf("top-k must be positive, got %d", opts.TopK))
	}

	candidates, err := s.fetchCandidates(ctx, collection, len(vector), opts.Filter)
	if err != nil {
		return nil, wrapError("query", err)
	}
	if len(candidates) < opts.TopK {
		return nil, wrapError("query", &InsufficientCandidatesError{
			Requested: opts.TopK,
			Available: len(candidates),
		})
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{Embedding: c, Distance: CosineDistance(vector, c.Vector)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	return matches[:opts.TopK], nil
}

func (s *Store) fetchCandidates(ctx context.Context, collection string, dim int, filter map[string]string) ([]Embedding, error) {
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return nil, err
	}
	args = append(args, dim)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, vector, content, metadata FROM embeddings WHERE "+where+" AND dimensions = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		var (
			emb  Embedding
			blob []byte
			meta *string
		)
		if err := rows.Scan(&emb.ID, &blob, &emb.Content, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		emb.Vector, err = encoding.DecodeVector(blob)
		if err != nil {
			s.logger.Warn("skipping undecodable vector", "collection", collection, "id", emb.ID, "error", err)
			continue
		}
		if meta != nil {
			emb.Metadata, err = encoding.DecodeMetadata(*meta)
			if err != nil {
				return nil, fmt.Errorf("embedding %s: %w", emb.ID, err)
			}
		}
		out = append(out, emb)
	}
	return out, rows.Err()
}
