package workspace

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxCourseCodeLen = 32
	maxNameLen       = 120
)

var courseCodePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// NormalizeCourseCode uppercases code and removes all whitespace
func NormalizeCourseCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// CreateCourse validates and inserts a new course
func (s *Store) CreateCourse(ctx context.Context, code, name string) (*Course, error) {
	const op = "create course"

	code = NormalizeCourseCode(code)
	name = strings.TrimSpace(name)
	switch {
	case code == "":
		return nil, invalid(op, "course code is required")
	case len(code) > maxCourseCodeLen:
		return nil, invalid(op, "course code must be at most %d characters", maxCourseCodeLen)
	case !courseCodePattern.MatchString(code):
		return nil, invalid(op, "course code may only contain A-Z, 0-9, '_' and '-'")
	case name == "":
		return nil, invalid(op, "course name is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		return nil, invalid(op, "course name must be at most %d characters", maxNameLen)
	}

	now := s.timestamp()
	course := &Course{ID: uuid.NewString(), Code: code, Name: name, CreatedAt: parseTime(now), UpdatedAt: parseTime(now)}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses WHERE code = ?`, code).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return invalid(op, "course code %s already exists", code)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO courses (id, code, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			course.ID, code, name, now, now)
		if isUniqueViolation(err) {
			return invalid(op, "course code %s already exists", code)
		}
		return err
	})
	if err != nil {
		return nil, wrapError(op, err)
	}

	s.logger.Info("course created", "course_id", course.ID, "code", code)
	return course, nil
}

// GetCourse returns the course with id, or ErrNotFound
func (s *Store) GetCourse(ctx context.Context, id string) (*Course, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, created_at, updated_at FROM courses WHERE id = ?`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapError("get course", ErrNotFound)
	}
	return c, wrapError("get course", err)
}

// GetCourseByCode looks a course up by its normalized code
func (s *Store) GetCourseByCode(ctx context.Context, code string) (*Course, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, created_at, updated_at FROM courses WHERE code = ?`, NormalizeCourseCode(code))
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapError("get course", ErrNotFound)
	}
	return c, wrapError("get course", err)
}

// ListCourses returns every course ordered by code
func (s *Store) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, created_at, updated_at FROM courses ORDER BY code COLLATE NOCASE ASC`)
	if err != nil {
		return nil, wrapError("list courses", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, wrapError("list courses", err)
		}
		out = append(out, *c)
	}
	return out, wrapError("list courses", rows.Err())
}

func scanCourse(row rowScanner) (*Course, error) {
	var c Course
	var created, updated string
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return &c, nil
}

func courseExists(ctx context.Context, q querier, id string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}
