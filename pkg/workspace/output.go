package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OutputParams describes a generated output to persist
type OutputParams struct {
	CourseID string
	Type     OutputType
	Content  string
	// ScopeSetID optionally names the scope set the output was generated from
	ScopeSetID *int64
	// ScopeArtifactIDs overrides the snapshot; when nil the snapshot is
	// resolved from ScopeSetID at creation time
	ScopeArtifactIDs []int64
	ModelUsed        string
	// Status defaults to StatusSuccess
	Status OutputStatus
}

const outputColumns = `id, course_id, output_type, scope_set_id, scope_artifact_ids, content, model_used, status, created_at`

// CreateOutput validates and stores an output together with a snapshot of
// its scope membership
func (s *Store) CreateOutput(ctx context.Context, p OutputParams) (int64, error) {
	const op = "create output"

	if p.CourseID == "" {
		return 0, invalid(op, "course is required")
	}
	typ, err := ParseOutputType(string(p.Type))
	if err != nil {
		return 0, invalid(op, "%v", err)
	}
	status := p.Status
	if status == "" {
		status = StatusSuccess
	}
	if status != StatusSuccess && status != StatusFailed {
		return 0, invalid(op, "unsupported status %q", status)
	}
	if status == StatusSuccess {
		if err := validateContent(typ, p.Content); err != nil {
			return 0, invalid(op, "%v", err)
		}
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := courseExists(ctx, tx, p.CourseID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Op: op, Msg: "course not found", Err: ErrNotFound}
		}

		snapshot := NewIDSet(p.ScopeArtifactIDs...)
		if p.ScopeSetID != nil {
			set, err := getScopeSet(ctx, tx, *p.ScopeSetID)
			if err != nil {
				return err
			}
			if set == nil || set.CourseID != p.CourseID {
				return invalid(op, "scope set %d does not belong to the course", *p.ScopeSetID)
			}
			if p.ScopeArtifactIDs == nil {
				if snapshot, err = resolveScope(ctx, tx, p.CourseID, set.ID); err != nil {
					return err
				}
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO outputs (course_id, output_type, scope_set_id, scope_artifact_ids, content, model_used, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.CourseID, string(typ), p.ScopeSetID, snapshot.encode(), p.Content, p.ModelUsed, string(status), s.timestamp())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, wrapError(op, err)
	}

	s.logger.Info("output created", "course_id", p.CourseID, "output_id", id, "type", typ, "status", status)
	return id, nil
}

// GetOutput returns the output with id, or ErrNotFound
func (s *Store) GetOutput(ctx context.Context, id int64) (*Output, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+outputColumns+` FROM outputs WHERE id = ?`, id)
	o, err := scanOutput(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapError("get output", ErrNotFound)
	}
	return o, wrapError("get output", err)
}

// ListOutputs returns the course's outputs, newest first. An empty typ
// lists every type.
func (s *Store) ListOutputs(ctx context.Context, courseID string, typ OutputType) ([]Output, error) {
	const op = "list outputs"
	if courseID == "" {
		return nil, nil
	}

	query := `SELECT ` + outputColumns + ` FROM outputs WHERE course_id = ?`
	args := []any{courseID}
	if typ != "" {
		t, err := ParseOutputType(string(typ))
		if err != nil {
			return nil, invalid(op, "%v", err)
		}
		query += ` AND output_type = ?`
		args = append(args, string(t))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(op, err)
	}
	defer rows.Close()

	var out []Output
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, wrapError(op, err)
		}
		out = append(out, *o)
	}
	return out, wrapError(op, rows.Err())
}

func scanOutput(row rowScanner) (*Output, error) {
	var (
		o          Output
		typ        string
		status     string
		scopeSetID sql.NullInt64
		scopeIDs   string
		created    string
	)
	err := row.Scan(&o.ID, &o.CourseID, &typ, &scopeSetID, &scopeIDs, &o.Content, &o.ModelUsed, &status, &created)
	if err != nil {
		return nil, err
	}
	o.Type, o.Status = OutputType(typ), OutputStatus(status)
	if scopeSetID.Valid {
		id := scopeSetID.Int64
		o.ScopeSetID = &id
	}
	o.ScopeArtifactIDs = parseIDSet(scopeIDs)
	o.CreatedAt = parseTime(created)
	return &o, nil
}

// validateContent checks that content matches the payload shape of typ
func validateContent(typ OutputType, content string) error {
	switch typ {
	case OutputSummary, OutputOutline:
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("%s content is empty", typ)
		}
	case OutputQuiz:
		var q QuizContent
		if err := decodeStrict(content, &q); err != nil {
			return fmt.Errorf("quiz content: %w", err)
		}
		for i, question := range q.Questions {
			if strings.TrimSpace(question.Question) == "" {
				return fmt.Errorf("quiz question %d has no text", i+1)
			}
		}
	case OutputGraph:
		var g GraphContent
		if err := decodeStrict(content, &g); err != nil {
			return fmt.Errorf("graph content: %w", err)
		}
		names := make(map[string]bool, len(g.Nodes))
		for i, n := range g.Nodes {
			if strings.TrimSpace(n.Name) == "" {
				return fmt.Errorf("graph node %d has no name", i+1)
			}
			names[n.Name] = true
		}
		for _, l := range g.Links {
			if !names[l.Source] || !names[l.Target] {
				return fmt.Errorf("graph link %s -> %s references an unknown node", l.Source, l.Target)
			}
		}
	}
	return nil
}

func decodeStrict(content string, v any) error {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return errors.New("expected a JSON object")
	}
	return json.Unmarshal([]byte(trimmed), v)
}
