package vectordb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/encoding"
	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/sqlitedb"
)

// EnsureCollection creates the collection with initial metadata unless it
// already exists. It reports whether the collection was created.
func (s *Store) EnsureCollection(ctx context.Context, name string, initial map[string]string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("ensure_collection"); err != nil {
		return false, err
	}
	if name == "" {
		return false, wrapError("ensure_collection", ErrEmptyCollection)
	}
	if initial == nil {
		initial = map[string]string{}
	}
	meta, err := encoding.EncodeMetadata(initial)
	if err != nil {
		return false, wrapError("ensure_collection", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, metadata) VALUES (?, ?)`, name, meta)
	if err != nil {
		return false, wrapError("ensure_collection", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapError("ensure_collection", err)
	}
	if n > 0 {
		s.logger.Debug("collection created", "collection", name)
	}
	return n > 0, nil
}

// CollectionMetadata returns a copy of the collection's metadata
func (s *Store) CollectionMetadata(ctx context.Context, name string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("collection_metadata"); err != nil {
		return nil, err
	}
	meta, err := readCollectionMetadata(ctx, s.db, name)
	return meta, wrapError("collection_metadata", err)
}

// UpdateCollectionMetadata merges patch into the collection's metadata
func (s *Store) UpdateCollectionMetadata(ctx context.Context, name string, patch map[string]string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("update_collection_metadata"); err != nil {
		return err
	}
	err := sqlitedb.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		meta, err := readCollectionMetadata(ctx, tx, name)
		if err != nil {
			return err
		}
		for k, v := range patch {
			meta[k] = v
		}
		raw, err := encoding.EncodeMetadata(meta)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE collections SET metadata = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`, raw, name)
		return err
	})
	return wrapError("update_collection_metadata", err)
}

// DeleteCollection removes the collection and all of its vectors
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("delete_collection"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	return wrapError("delete_collection", err)
}

// ListCollections returns every collection name in order
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready("list_collections"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, wrapError("list_collections", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapError("list_collections", err)
		}
		names = append(names, name)
	}
	return names, wrapError("list_collections", rows.Err())
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readCollectionMetadata(ctx context.Context, q rowQuerier, name string) (map[string]string, error) {
	if name == "" {
		return nil, ErrEmptyCollection
	}
	var raw string
	err := q.QueryRowContext(ctx, `SELECT metadata FROM collections WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	meta, err := encoding.DecodeMetadata(raw)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = map[string]string{}
	}
	return meta, nil
}
