package workspace

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"
)

// DefaultScopeSetName is the name of each course's default scope set
const DefaultScopeSetName = "All Materials"

const scopeSetColumns = `id, course_id, name, is_default, created_at, updated_at`

// EnsureDefaultScopeSet creates the course's default scope set if needed
// and recomputes its membership from the course's artifacts
func (s *Store) EnsureDefaultScopeSet(ctx context.Context, courseID string) (*ScopeSet, error) {
	const op = "ensure default scope set"
	if courseID == "" {
		return nil, invalid(op, "course is required")
	}

	var set *ScopeSet
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := courseExists(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Op: op, Msg: "course not found", Err: ErrNotFound}
		}
		id, err := recomputeDefaultScope(ctx, tx, courseID, s.timestamp())
		if err != nil {
			return err
		}
		set, err = getScopeSet(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, wrapError(op, err)
	}
	return set, nil
}

// ListScopeSets returns the course's scope sets, default first. The default
// set is created when missing.
func (s *Store) ListScopeSets(ctx context.Context, courseID string) ([]ScopeSet, error) {
	const op = "list scope sets"
	if courseID == "" {
		return nil, nil
	}
	if _, err := s.EnsureDefaultScopeSet(ctx, courseID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scopeSetColumns+` FROM scope_sets
		WHERE course_id = ?
		ORDER BY is_default DESC, created_at ASC, id ASC`, courseID)
	if err != nil {
		return nil, wrapError(op, err)
	}
	var sets []ScopeSet
	for rows.Next() {
		set, err := scanScopeSet(rows)
		if err != nil {
			rows.Close()
			return nil, wrapError(op, err)
		}
		sets = append(sets, *set)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrapError(op, err)
	}

	for i := range sets {
		ids, err := scopeItems(ctx, s.db, sets[i].ID)
		if err != nil {
			return nil, wrapError(op, err)
		}
		sets[i].ArtifactIDs = ids
	}
	return sets, nil
}

// GetScopeSet returns the scope set with id, or ErrNotFound
func (s *Store) GetScopeSet(ctx context.Context, id int64) (*ScopeSet, error) {
	set, err := getScopeSet(ctx, s.db, id)
	if err != nil {
		return nil, wrapError("get scope set", err)
	}
	if set == nil {
		return nil, wrapError("get scope set", ErrNotFound)
	}
	return set, nil
}

// CreateScopeSet adds an empty, non-default scope set to the course
func (s *Store) CreateScopeSet(ctx context.Context, courseID, name string) (int64, error) {
	const op = "create scope set"
	if courseID == "" {
		return 0, invalid(op, "course is required")
	}
	name, err := validateScopeName(op, name)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := courseExists(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Op: op, Msg: "course not found", Err: ErrNotFound}
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO scope_sets (course_id, name, is_default, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?)`, courseID, name, now, now)
		if isUniqueViolation(err) {
			return invalid(op, "scope set %q already exists", name)
		}
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, wrapError(op, err)
	}
	return id, nil
}

// RenameScopeSet renames a non-default scope set. A missing set is a no-op
// that returns (nil, nil).
func (s *Store) RenameScopeSet(ctx context.Context, id int64, name string) (*ScopeSet, error) {
	const op = "rename scope set"

	var set *ScopeSet
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		set, err = getScopeSet(ctx, tx, id)
		if err != nil || set == nil {
			return err
		}
		if set.IsDefault {
			return invalid(op, "default scope set cannot be renamed")
		}
		clean, err := validateScopeName(op, name)
		if err != nil {
			return err
		}
		if clean == set.Name {
			return nil
		}

		now := s.timestamp()
		_, err = tx.ExecContext(ctx, `UPDATE scope_sets SET name = ?, updated_at = ? WHERE id = ?`, clean, now, id)
		if isUniqueViolation(err) {
			return invalid(op, "scope set %q already exists", clean)
		}
		if err != nil {
			return err
		}
		set.Name, set.UpdatedAt = clean, parseTime(now)
		return nil
	})
	if err != nil {
		return nil, wrapError(op, err)
	}
	return set, nil
}

// DeleteScopeSet deletes a non-default scope set. A missing set is a no-op.
// Outputs created from the set keep their scope snapshot.
func (s *Store) DeleteScopeSet(ctx context.Context, id int64) error {
	const op = "delete scope set"
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		set, err := getScopeSet(ctx, tx, id)
		if err != nil || set == nil {
			return err
		}
		if set.IsDefault {
			return invalid(op, "default scope set cannot be deleted")
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM scope_sets WHERE id = ?`, id)
		return err
	})
	return wrapError(op, err)
}

// ReplaceScopeSetItems sets the membership of a non-default scope set to
// exactly the given artifacts. It returns the size of the new membership.
func (s *Store) ReplaceScopeSetItems(ctx context.Context, id int64, artifactIDs []int64) (int, error) {
	const op = "replace scope set items"
	ids := NewIDSet(artifactIDs...)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		set, err := getScopeSet(ctx, tx, id)
		if err != nil {
			return err
		}
		if set == nil {
			return &ValidationError{Op: op, Msg: "scope set not found", Err: ErrNotFound}
		}
		if set.IsDefault {
			return invalid(op, "default scope set membership is managed automatically")
		}
		if ids.Len() > 0 {
			var n int
			args := append([]any{set.CourseID}, int64Args(ids)...)
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM artifacts WHERE course_id = ? AND id IN (`+placeholders(ids.Len())+`)`,
				args...).Scan(&n)
			if err != nil {
				return err
			}
			if n != ids.Len() {
				return invalid(op, "artifacts must belong to the scope set's course")
			}
		}
		return replaceScopeItems(ctx, tx, id, ids, s.timestamp())
	})
	if err != nil {
		return 0, wrapError(op, err)
	}
	return ids.Len(), nil
}

// ListScopeSetArtifactIDs returns the stored membership of a scope set
func (s *Store) ListScopeSetArtifactIDs(ctx context.Context, id int64) (IDSet, error) {
	ids, err := scopeItems(ctx, s.db, id)
	return ids, wrapError("list scope set items", err)
}

// ResolveScopeArtifactIDs returns the artifacts selected by a scope set of
// courseID. The default set resolves to the live list of course artifacts.
// An unknown set or one owned by another course resolves to an empty set.
func (s *Store) ResolveScopeArtifactIDs(ctx context.Context, courseID string, scopeSetID int64) (IDSet, error) {
	ids, err := resolveScope(ctx, s.db, courseID, scopeSetID)
	return ids, wrapError("resolve scope", err)
}

func resolveScope(ctx context.Context, q querier, courseID string, scopeSetID int64) (IDSet, error) {
	if courseID == "" {
		return IDSet{}, nil
	}
	set, err := getScopeSet(ctx, q, scopeSetID)
	if err != nil {
		return nil, err
	}
	if set == nil || set.CourseID != courseID {
		return IDSet{}, nil
	}
	if set.IsDefault {
		return courseArtifactIDs(ctx, q, courseID)
	}
	return set.ArtifactIDs, nil
}

func validateScopeName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", invalid(op, "scope set name is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		return "", invalid(op, "scope set name must be at most %d characters", maxNameLen)
	case strings.EqualFold(name, DefaultScopeSetName):
		return "", invalid(op, "scope set name %q is reserved", DefaultScopeSetName)
	}
	return name, nil
}

// recomputeDefaultScope makes the course's default scope set hold exactly
// the course's artifacts, creating the set when missing
func recomputeDefaultScope(ctx context.Context, tx *sql.Tx, courseID, now string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM scope_sets WHERE course_id = ? AND is_default = 1`, courseID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO scope_sets (course_id, name, is_default, created_at, updated_at)
			VALUES (?, ?, 1, ?, ?)`, courseID, DefaultScopeSetName, now, now)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	ids, err := courseArtifactIDs(ctx, tx, courseID)
	if err != nil {
		return 0, err
	}
	return id, replaceScopeItems(ctx, tx, id, ids, now)
}

func replaceScopeItems(ctx context.Context, tx *sql.Tx, id int64, ids IDSet, now string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM scope_set_items WHERE scope_set_id = ?`, id); err != nil {
		return err
	}
	if ids.Len() > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO scope_set_items (scope_set_id, artifact_id, created_at) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, aid := range ids {
			if _, err := stmt.ExecContext(ctx, id, aid, now); err != nil {
				return err
			}
		}
	}
	_, err := tx.ExecContext(ctx, `UPDATE scope_sets SET updated_at = ? WHERE id = ?`, now, id)
	return err
}

func getScopeSet(ctx context.Context, q querier, id int64) (*ScopeSet, error) {
	row := q.QueryRowContext(ctx, `SELECT `+scopeSetColumns+` FROM scope_sets WHERE id = ?`, id)
	set, err := scanScopeSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if set.ArtifactIDs, err = scopeItems(ctx, q, id); err != nil {
		return nil, err
	}
	return set, nil
}

func scanScopeSet(row rowScanner) (*ScopeSet, error) {
	var set ScopeSet
	var isDefault int
	var created, updated string
	if err := row.Scan(&set.ID, &set.CourseID, &set.Name, &isDefault, &created, &updated); err != nil {
		return nil, err
	}
	set.IsDefault = isDefault == 1
	set.CreatedAt, set.UpdatedAt = parseTime(created), parseTime(updated)
	return &set, nil
}

func scopeItems(ctx context.Context, q querier, id int64) (IDSet, error) {
	return queryIDs(ctx, q,
		`SELECT artifact_id FROM scope_set_items WHERE scope_set_id = ? ORDER BY artifact_id`, id)
}

func courseArtifactIDs(ctx context.Context, q querier, courseID string) (IDSet, error) {
	return queryIDs(ctx, q, `SELECT id FROM artifacts WHERE course_id = ? ORDER BY id`, courseID)
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) (IDSet, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := IDSet{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
