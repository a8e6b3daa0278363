// Package migrate brings the relational store to the newest schema version.
//
// Schema scripts are named NNN_description.sql and applied in ordinal order,
// each in its own transaction together with the schema_version record in the
// meta table. Before any script runs the runner takes a cross-process lock
// file and writes a backup of the store and the assets directory.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/sqlitedb"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
)

const versionKey = "schema_version"

// Config configures a Runner
type Config struct {
	// DBPath is the SQLite store to migrate
	DBPath string
	// BackupsDir receives one backup_<timestamp> directory per migration run
	BackupsDir string
	// AssetsDir is archived into the backup when it exists
	AssetsDir string
	// LockPath defaults to .migrate.lock next to DBPath
	LockPath string
	// Scripts defaults to EmbeddedScripts()
	Scripts fs.FS
	Logger  logging.Logger
	Now     func() time.Time
}

// Status describes the store relative to the known scripts
type Status struct {
	Current int
	Latest  int
	Pending []Script
	// Ahead is set when the store was written by a newer release
	Ahead bool
}

// Runner applies schema scripts to one store
type Runner struct {
	cfg    Config
	logger logging.Logger
}

// New validates cfg and returns a Runner
func New(cfg Config) (*Runner, error) {
	if cfg.DBPath == "" {
		return nil, wrapError("new", errors.New("database path is required"))
	}
	if cfg.BackupsDir == "" {
		return nil, wrapError("new", errors.New("backups directory is required"))
	}
	if cfg.LockPath == "" {
		cfg.LockPath = filepath.Join(filepath.Dir(cfg.DBPath), ".migrate.lock")
	}
	if cfg.Scripts == nil {
		cfg.Scripts = EmbeddedScripts()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := logging.OrNop(cfg.Logger).With("component", "migrate")
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Scripts returns the known scripts in ascending version order
func (r *Runner) Scripts() ([]Script, error) {
	scripts, err := discover(r.cfg.Scripts)
	if err != nil {
		return nil, wrapError("scripts", err)
	}
	return scripts, nil
}

// LatestVersion returns the highest known script version, 0 without scripts
func (r *Runner) LatestVersion() (int, error) {
	scripts, err := r.Scripts()
	if err != nil {
		return 0, err
	}
	return latestOf(scripts), nil
}

// CurrentVersion returns the store's schema version. A missing store or
// meta table reads as 0; the store file is not created.
func (r *Runner) CurrentVersion(ctx context.Context) (int, error) {
	if !fileExists(r.cfg.DBPath) {
		return 0, nil
	}
	db, err := sqlitedb.Open(ctx, r.cfg.DBPath)
	if err != nil {
		return 0, wrapError("current version", err)
	}
	defer db.Close()

	v, err := readVersion(ctx, db)
	if err != nil {
		return 0, wrapError("current version", err)
	}
	return v, nil
}

// Status compares the store with the known scripts
func (r *Runner) Status(ctx context.Context) (Status, error) {
	scripts, err := r.Scripts()
	if err != nil {
		return Status{}, err
	}
	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return Status{}, err
	}
	latest := latestOf(scripts)
	return Status{
		Current: current,
		Latest:  latest,
		Pending: pendingAfter(scripts, current),
		Ahead:   current > latest,
	}, nil
}

// ApplyLatest applies every pending script and returns the resulting
// version. With nothing pending it returns the current version without
// taking the lock or writing a backup. If a script fails, the scripts
// before it stay applied and a *MigrationError naming the backup is
// returned together with the last good version.
func (r *Runner) ApplyLatest(ctx context.Context) (int, error) {
	scripts, err := r.Scripts()
	if err != nil {
		return 0, err
	}

	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}
	if len(pendingAfter(scripts, current)) == 0 {
		if latest := latestOf(scripts); current > latest {
			r.logger.Warn("store schema is newer than this release", "current", current, "latest", latest)
		}
		return current, nil
	}

	// The store file is only created once the lock is held.
	release, err := acquireLock(r.cfg.LockPath)
	if err != nil {
		return current, wrapError("lock", err)
	}
	defer release()

	storeExisted := fileExists(r.cfg.DBPath)
	db, err := sqlitedb.Open(ctx, r.cfg.DBPath)
	if err != nil {
		return current, wrapError("open", err)
	}
	defer db.Close()

	// Another process may have finished while we waited for the lock.
	current, err = readVersion(ctx, db)
	if err != nil {
		return 0, wrapError("read version", err)
	}
	pending := pendingAfter(scripts, current)
	if len(pending) == 0 {
		return current, nil
	}

	backupDir, err := r.backup(ctx, db, storeExisted)
	if err != nil {
		return current, wrapError("backup", err)
	}

	for _, s := range pending {
		start := time.Now()
		if err := r.applyScript(ctx, db, s); err != nil {
			r.logger.Error("migration failed", "script", s.Name, "backup", backupDir, "err", err)
			return current, &MigrationError{Version: s.Version, Script: s.Name, BackupDir: backupDir, Err: err}
		}
		current = s.Version
		r.logger.Info("migration applied", "script", s.Name, "version", s.Version, "elapsed", time.Since(start))
	}
	return current, nil
}

func (r *Runner) applyScript(ctx context.Context, db *sql.DB, s Script) error {
	body, err := fs.ReadFile(r.cfg.Scripts, s.Name)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	return sqlitedb.WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
			return fmt.Errorf("ensure meta table: %w", err)
		}
		if strings.TrimSpace(string(body)) != "" {
			if _, err := tx.ExecContext(ctx, string(body)); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			versionKey, strconv.Itoa(s.Version))
		if err != nil {
			return fmt.Errorf("record version: %w", err)
		}
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readVersion(ctx context.Context, q queryer) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'meta'`).Scan(&n)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	var raw string
	err = q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, versionKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("malformed schema_version %q", raw)
	}
	return v, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// Once applies migrations at most once successfully per value. Failed
// attempts are not cached, so a later call retries.
type Once struct {
	mu      sync.Mutex
	done    bool
	version int
}

// Do runs r.ApplyLatest unless a previous call through o succeeded
func (o *Once) Do(ctx context.Context, r *Runner) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return o.version, nil
	}
	v, err := r.ApplyLatest(ctx)
	if err != nil {
		return v, err
	}
	o.done, o.version = true, v
	return v, nil
}
