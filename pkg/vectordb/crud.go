package vectordb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/encoding"
	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/sqlitedb"
)

// UpsertBatch inserts or replaces embeddings in a single transaction and
// returns how many ids were new. All vectors in a batch must share one
// dimension.
func (s *Store) UpsertBatch(ctx context.Context, collection string, embs []Embedding) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("upsert_batch"); err != nil {
		return 0, err
	}
	if collection == "" {
		return 0, wrapError("upsert_batch", ErrEmptyCollection)
	}
	if len(embs) == 0 {
		return 0, nil
	}

	dim := len(embs[0].Vector)
	for i, emb := range embs {
		if emb.ID == "" {
			return 0, wrapError("upsert_batch", fmt.Errorf("embedding %d: empty id", i))
		}
		if err := encoding.ValidateVector(emb.Vector); err != nil {
			return 0, wrapError("upsert_batch", fmt.Errorf("embedding %s: %w", emb.ID, err))
		}
		if len(emb.Vector) != dim {
			return 0, wrapError("upsert_batch", fmt.Errorf("%w: embedding %s has %d, expected %d",
				ErrDimensionMismatch, emb.ID, len(emb.Vector), dim))
		}
	}

	added := 0
	err := sqlitedb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := readCollectionMetadata(ctx, tx, collection); err != nil {
			return err
		}

		exists, err := tx.PrepareContext(ctx, `SELECT 1 FROM embeddings WHERE collection = ? AND id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer exists.Close()

		upsert, err := tx.PrepareContext(ctx, `
			INSERT INTO embeddings (collection, id, vector, dimensions, content, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				vector = excluded.vector,
				dimensions = excluded.dimensions,
				content = excluded.content,
				metadata = excluded.metadata`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer upsert.Close()

		for _, emb := range embs {
			var one int
			switch err := exists.QueryRowContext(ctx, collection, emb.ID).Scan(&one); err {
			case nil:
			case sql.ErrNoRows:
				added++
			default:
				return err
			}

			blob, err := encoding.EncodeVector(emb.Vector)
			if err != nil {
				return fmt.Errorf("embedding %s: %w", emb.ID, err)
			}
			var meta any
			if emb.Metadata != nil {
				raw, err := encoding.EncodeMetadata(emb.Metadata)
				if err != nil {
					return fmt.Errorf("embedding %s: %w", emb.ID, err)
				}
				meta = raw
			}
			if _, err := upsert.ExecContext(ctx, collection, emb.ID, blob, dim, emb.Content, meta); err != nil {
				return fmt.Errorf("failed to upsert embedding %s: %w", emb.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapError("upsert_batch", err)
	}

	s.logger.Debug("upserted embeddings", "collection", collection, "count", len(embs), "added", added)
	return added, nil
}

// Count returns the number of embeddings in a collection matching filter
func (s *Store) Count(ctx context.Context, collection string, filter map[string]string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("count"); err != nil {
		return 0, err
	}
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return 0, wrapError("count", err)
	}

	var n int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE "+where, args...).Scan(&n)
	return n, wrapError("count", err)
}

// Exists reports whether any embedding in the collection matches filter
func (s *Store) Exists(ctx context.Context, collection string, filter map[string]string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("exists"); err != nil {
		return false, err
	}
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return false, wrapError("exists", err)
	}

	var found bool
	err = s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM embeddings WHERE "+where+")", args...).Scan(&found)
	return found, wrapError("exists", err)
}

// DeleteWhere removes embeddings matching filter and returns how many
// were deleted
func (s *Store) DeleteWhere(ctx context.Context, collection string, filter map[string]string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("delete_where"); err != nil {
		return 0, err
	}
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return 0, wrapError("delete_where", err)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM embeddings WHERE "+where, args...)
	if err != nil {
		return 0, wrapError("delete_where", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapError("delete_where", err)
	}
	s.logger.Debug("deleted embeddings", "collection", collection, "count", n)
	return n, nil
}
