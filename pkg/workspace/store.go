// Package workspace persists courses, uploaded artifacts, scope sets,
// generated outputs, flashcard decks and operation metrics.
//
// The store operates on a database already brought to the latest schema by
// package migrate. Every mutating operation runs in one transaction.
package workspace

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/sqlitedb"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
)

// timeFormat is fixed width so stored timestamps sort lexically
const timeFormat = "2006-01-02T15:04:05.000000Z"

// Config configures a Store
type Config struct {
	// ArtifactsDir is the root below which uploaded files are written
	ArtifactsDir string
	Logger       logging.Logger
	Now          func() time.Time
}

// Store is the workspace repository
type Store struct {
	db     *sql.DB
	root   string
	logger logging.Logger
	now    func() time.Time
}

// New returns a Store over a migrated database
func New(db *sql.DB, cfg Config) (*Store, error) {
	if db == nil {
		return nil, wrapError("new", errors.New("database is required"))
	}
	if cfg.ArtifactsDir == "" {
		return nil, wrapError("new", errors.New("artifacts directory is required"))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		db:     db,
		root:   cfg.ArtifactsDir,
		logger: logging.OrNop(cfg.Logger).With("component", "workspace"),
		now:    cfg.Now,
	}, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return sqlitedb.WithTx(ctx, s.db, fn)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeFormat)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return t
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
