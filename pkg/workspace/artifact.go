package workspace

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxFileNameLen  = 128
	defaultFileName = "uploaded.pdf"
	hashPrefixLen   = 12
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName replaces every character outside [a-zA-Z0-9._-] with '_'
// and truncates to 128 characters
func SanitizeFileName(name string) string {
	clean := unsafeFileChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if len(clean) > maxFileNameLen {
		clean = clean[:maxFileNameLen]
	}
	if clean == "" {
		return defaultFileName
	}
	return clean
}

// ContentHash returns the hex SHA-256 of data
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

const artifactColumns = `id, course_id, file_name, file_hash, file_path, created_at`

// SaveArtifact stores data for courseID. If the course already holds an
// artifact with the same content hash, that artifact is returned unchanged
// and nothing is written to disk. The bool reports whether a new artifact
// was created.
func (s *Store) SaveArtifact(ctx context.Context, courseID, fileName string, data []byte) (*Artifact, bool, error) {
	const op = "save artifact"

	if courseID == "" {
		return nil, false, invalid(op, "course is required")
	}
	if len(data) == 0 {
		return nil, false, invalid(op, "empty file cannot be saved")
	}
	ok, err := courseExists(ctx, s.db, courseID)
	if err != nil {
		return nil, false, wrapError(op, err)
	}
	if !ok {
		return nil, false, &ValidationError{Op: op, Msg: "course not found", Err: ErrNotFound}
	}

	hash := ContentHash(data)
	if existing, err := s.artifactByHash(ctx, s.db, courseID, hash); err != nil {
		return nil, false, wrapError(op, err)
	} else if existing != nil {
		return existing, false, nil
	}

	name := SanitizeFileName(fileName)
	rel := path.Join(courseID, "artifacts", hash[:hashPrefixLen]+"_"+name)
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	wrote, err := writeFileOnce(abs, data)
	if err != nil {
		return nil, false, wrapError(op, err)
	}

	var (
		artifact *Artifact
		created  bool
	)
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (course_id, file_name, file_hash, file_path, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (course_id, file_hash) DO NOTHING`,
			courseID, name, hash, rel, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1

		artifact, err = s.artifactByHash(ctx, tx, courseID, hash)
		if err != nil {
			return err
		}
		if artifact == nil {
			return errors.New("artifact vanished after insert")
		}
		if !created {
			return nil
		}
		_, err = recomputeDefaultScope(ctx, tx, courseID, now)
		return err
	})
	// Remove our copy when the row was not ours and points elsewhere.
	if wrote && (err != nil || (!created && artifact.StoragePath != rel)) {
		_ = os.Remove(abs)
	}
	if err != nil {
		return nil, false, wrapError(op, err)
	}

	if created {
		s.logger.Info("artifact saved", "course_id", courseID, "artifact_id", artifact.ID, "file", name, "bytes", len(data))
	}
	return artifact, created, nil
}

// GetArtifact returns the artifact with id, or ErrNotFound
func (s *Store) GetArtifact(ctx context.Context, id int64) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapError("get artifact", ErrNotFound)
	}
	return a, wrapError("get artifact", err)
}

// ListArtifacts returns the course's artifacts, newest first
func (s *Store) ListArtifacts(ctx context.Context, courseID string) ([]Artifact, error) {
	if courseID == "" {
		return nil, nil
	}
	out, err := queryArtifacts(ctx, s.db, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE course_id = ?
		ORDER BY created_at DESC, id DESC`, courseID)
	return out, wrapError("list artifacts", err)
}

// ListArtifactsByIDs returns the artifacts among ids that belong to
// courseID, newest first
func (s *Store) ListArtifactsByIDs(ctx context.Context, courseID string, ids []int64) ([]Artifact, error) {
	set := NewIDSet(ids...)
	if courseID == "" || set.Len() == 0 {
		return nil, nil
	}
	args := append([]any{courseID}, int64Args(set)...)
	out, err := queryArtifacts(ctx, s.db, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE course_id = ? AND id IN (`+placeholders(set.Len())+`)
		ORDER BY created_at DESC, id DESC`, args...)
	return out, wrapError("list artifacts", err)
}

// ReadArtifact returns the stored bytes of a
func (s *Store) ReadArtifact(a *Artifact) ([]byte, error) {
	abs, err := s.artifactPath(a.StoragePath)
	if err != nil {
		return nil, wrapError("read artifact", err)
	}
	data, err := os.ReadFile(abs)
	return data, wrapError("read artifact", err)
}

// RemoveArtifact deletes an artifact, its scope memberships and its file.
// Outputs keep the ids captured in their scope snapshot.
func (s *Store) RemoveArtifact(ctx context.Context, courseID string, id int64) error {
	const op = "remove artifact"

	var rel string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT file_path FROM artifacts WHERE id = ? AND course_id = ?`, id, courseID).Scan(&rel)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = recomputeDefaultScope(ctx, tx, courseID, s.timestamp())
		return err
	})
	if err != nil {
		return wrapError(op, err)
	}

	if abs, err := s.artifactPath(rel); err == nil {
		if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("artifact file not removed", "path", abs, "err", err)
		}
	}
	s.logger.Info("artifact removed", "course_id", courseID, "artifact_id", id)
	return nil
}

func (s *Store) artifactPath(rel string) (string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(s.root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage path %q escapes artifacts root", rel)
	}
	return abs, nil
}

func (s *Store) artifactByHash(ctx context.Context, q querier, courseID, hash string) (*Artifact, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE course_id = ? AND file_hash = ?`, courseID, hash)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func queryArtifacts(ctx context.Context, q querier, query string, args ...any) ([]Artifact, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var a Artifact
	var created string
	if err := row.Scan(&a.ID, &a.CourseID, &a.FileName, &a.ContentHash, &a.StoragePath, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// writeFileOnce writes data to path through a temp file unless path already
// exists. It reports whether it wrote the file.
func writeFileOnce(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("move artifact into place: %w", err)
	}
	return true, nil
}
