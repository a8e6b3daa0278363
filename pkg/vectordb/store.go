// Package vectordb is a SQLite-backed vector store. Vectors live in named
// collections that act as namespaces; each collection carries a string
// metadata map, and each vector carries content plus string metadata that
// can be filtered on.
package vectordb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/sqlitedb"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
)

// Config configures a Store
type Config struct {
	// Path is the SQLite file holding the vectors
	Path   string
	Logger logging.Logger
}

// Embedding is a stored vector with its text and metadata
type Embedding struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// Store is the vector store. All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	config Config
	logger logging.Logger
	closed bool
}

// New returns an uninitialized store; call Init before use
func New(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, wrapError("new", errors.New("path is required"))
	}
	return &Store{
		config: config,
		logger: logging.OrNop(config.Logger).With("component", "vectordb"),
	}, nil
}

// Init opens the database and creates the tables
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapError("init", ErrStoreClosed)
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlitedb.Open(ctx, s.config.Path)
	if err != nil {
		return wrapError("init", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return wrapError("init", err)
	}
	s.db = db

	s.logger.Info("vector store initialized", "path", s.config.Path)
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
		id TEXT NOT NULL,
		vector BLOB NOT NULL,
		dimensions INTEGER NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_file_hash
		ON embeddings(collection, json_extract(metadata, '$.file_hash'));
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database. Further calls return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	return wrapError("close", s.db.Close())
}

// ready must be called with s.mu held
func (s *Store) ready(op string) error {
	if s.closed {
		return wrapError(op, ErrStoreClosed)
	}
	if s.db == nil {
		return wrapError(op, ErrNotInitialized)
	}
	return nil
}
