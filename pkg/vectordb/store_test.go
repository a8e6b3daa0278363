package vectordb

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(Config{Path: filepath.Join(t.TempDir(), "vectors.db")})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func emb(id string, vec []float32, meta map[string]string) Embedding {
	return Embedding{ID: id, Vector: vec, Content: "content " + id, Metadata: meta}
}

func TestSimilarityFunctions(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
			assert.InDelta(t, 1-tt.expected, CosineDistance(tt.a, tt.b), 1e-6)
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	s, err := New(Config{Path: filepath.Join(t.TempDir(), "v.db")})
	require.NoError(t, err)

	_, err = s.Count(ctx, "c", nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Count(ctx, "c", nil)
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = New(Config{})
	assert.Error(t, err)
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	created, err := s.EnsureCollection(ctx, "course_a", map[string]string{"index_version": "1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureCollection(ctx, "course_a", map[string]string{"index_version": "9"})
	require.NoError(t, err)
	assert.False(t, created)

	meta, err := s.CollectionMetadata(ctx, "course_a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"index_version": "1"}, meta)

	require.NoError(t, s.UpdateCollectionMetadata(ctx, "course_a", map[string]string{"embedding_dim": "3"}))
	meta, err = s.CollectionMetadata(ctx, "course_a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"index_version": "1", "embedding_dim": "3"}, meta)

	_, err = s.CollectionMetadata(ctx, "missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	assert.ErrorIs(t, s.UpdateCollectionMetadata(ctx, "missing", nil), ErrCollectionNotFound)

	_, err = s.EnsureCollection(ctx, "", nil)
	assert.ErrorIs(t, err, ErrEmptyCollection)

	_, err = s.EnsureCollection(ctx, "course_b", nil)
	require.NoError(t, err)
	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"course_a", "course_b"}, names)

	_, err = s.UpsertBatch(ctx, "course_b", []Embedding{emb("x", []float32{1, 0}, nil)})
	require.NoError(t, err)
	require.NoError(t, s.DeleteCollection(ctx, "course_b"))

	names, err = s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"course_a"}, names)

	n, err := s.Count(ctx, "course_b", nil)
	require.NoError(t, err)
	assert.Zero(t, n, "vectors cascade with their collection")
}

func TestUpsertBatch(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	_, err := s.EnsureCollection(ctx, "c", nil)
	require.NoError(t, err)

	batch := []Embedding{
		emb("a", []float32{1, 0, 0}, map[string]string{"file_hash": "h1"}),
		emb("b", []float32{0, 1, 0}, map[string]string{"file_hash": "h1"}),
	}
	added, err := s.UpsertBatch(ctx, "c", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	batch[0].Content = "rewritten"
	added, err = s.UpsertBatch(ctx, "c", append(batch, emb("c", []float32{0, 0, 1}, nil)))
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	n, err := s.Count(ctx, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := s.Query(ctx, "c", []float32{1, 0, 0}, QueryOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "rewritten", matches[0].Content)

	t.Run("rejects mixed dimensions", func(t *testing.T) {
		_, err := s.UpsertBatch(ctx, "c", []Embedding{
			emb("d", []float32{1, 0}, nil),
			emb("e", []float32{1, 0, 0}, nil),
		})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("rejects NaN", func(t *testing.T) {
		_, err := s.UpsertBatch(ctx, "c", []Embedding{emb("f", []float32{float32(math.NaN())}, nil)})
		assert.Error(t, err)
	})

	t.Run("requires collection", func(t *testing.T) {
		_, err := s.UpsertBatch(ctx, "nope", []Embedding{emb("g", []float32{1}, nil)})
		assert.ErrorIs(t, err, ErrCollectionNotFound)
	})

	n, err = s.Count(ctx, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "failed batches leave no rows behind")
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	_, err := s.EnsureCollection(ctx, "c", nil)
	require.NoError(t, err)

	_, err = s.UpsertBatch(ctx, "c", []Embedding{
		emb("1", []float32{1, 0}, map[string]string{"course_id": "x", "file_hash": "h1"}),
		emb("2", []float32{0, 1}, map[string]string{"course_id": "x", "file_hash": "h2"}),
		emb("3", []float32{1, 1}, map[string]string{"course_id": "y", "file_hash": "h2"}),
	})
	require.NoError(t, err)

	n, err := s.Count(ctx, "c", map[string]string{"course_id": "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := s.Exists(ctx, "c", map[string]string{"file_hash": "h2", "course_id": "y"})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.Exists(ctx, "c", map[string]string{"file_hash": "h3"})
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.Count(ctx, "c", map[string]string{"bad key'": "x"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	deleted, err := s.DeleteWhere(ctx, "c", map[string]string{"course_id": "x"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	n, err = s.Count(ctx, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	_, err := s.EnsureCollection(ctx, "c", nil)
	require.NoError(t, err)

	_, err = s.UpsertBatch(ctx, "c", []Embedding{
		emb("near", []float32{1, 0.1}, map[string]string{"course_id": "x"}),
		emb("far", []float32{-1, 0}, map[string]string{"course_id": "x"}),
		emb("mid", []float32{0, 1}, map[string]string{"course_id": "x"}),
		emb("other", []float32{1, 0}, map[string]string{"course_id": "y"}),
	})
	require.NoError(t, err)
	_, err = s.UpsertBatch(ctx, "c", []Embedding{emb("3d", []float32{1, 0, 0}, map[string]string{"course_id": "x"})})
	require.NoError(t, err)

	matches, err := s.Query(ctx, "c", []float32{1, 0}, QueryOptions{TopK: 3, Filter: map[string]string{"course_id": "x"}})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "near", matches[0].ID)
	assert.Equal(t, "mid", matches[1].ID)
	assert.Equal(t, "far", matches[2].ID)
	assert.InDelta(t, 2.0, matches[2].Distance, 1e-6)
	assert.Equal(t, "x", matches[0].Metadata["course_id"])

	_, err = s.Query(ctx, "c", []float32{1, 0}, QueryOptions{TopK: 4, Filter: map[string]string{"course_id": "x"}})
	var insufficient *InsufficientCandidatesError
	require.True(t, errors.As(err, &insufficient))
	assert.ErrorIs(t, err, ErrInsufficientCandidates)
	assert.Equal(t, 4, insufficient.Requested)
	assert.Equal(t, 3, insufficient.Available)

	_, err = s.Query(ctx, "c", []float32{1, 0}, QueryOptions{TopK: 0})
	assert.Error(t, err)
}

func TestQueryTieBreaksByID(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	_, err := s.EnsureCollection(ctx, "c", nil)
	require.NoError(t, err)

	_, err = s.UpsertBatch(ctx, "c", []Embedding{
		emb("b", []float32{1, 0}, nil),
		emb("a", []float32{2, 0}, nil),
	})
	require.NoError(t, err)

	matches, err := s.Query(ctx, "c", []float32{1, 0}, QueryOptions{TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "b", matches[1].ID)
}
