package workspace

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// defaultOptions stands in for an mcq card stored without options
var defaultOptions = []string{"A", "B", "C", "D"}

// ReviewCard records a self-assessment of a card. Marking it unknown also
// files it in the mistakes bank.
func (s *Store) ReviewCard(ctx context.Context, cardID int64, action ReviewAction) (*ReviewResult, error) {
	const op = "review card"

	action = ReviewAction(strings.ToLower(strings.TrimSpace(string(action))))
	if action != ReviewKnown && action != ReviewUnknown {
		return nil, invalid(op, "action must be known or unknown")
	}

	var res ReviewResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		card, err := getCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card == nil {
			return &ValidationError{Op: op, Msg: "card not found", Err: ErrNotFound}
		}
		known := action == ReviewKnown
		now := s.timestamp()
		if err := recordReview(ctx, tx, card.ID, known, now); err != nil {
			return err
		}
		if !known {
			if res.Mistake, err = upsertMistake(ctx, tx, card, now); err != nil {
				return err
			}
		}
		res.Card, err = getCard(ctx, tx, card.ID)
		return err
	})
	if err != nil {
		return nil, wrapError(op, err)
	}
	return &res, nil
}

// SubmitAnswer checks an answer to an mcq card. Both the selection and the
// stored answer may be given as option text, a 0- or 1-based index or a
// letter. A wrong answer files the card in the mistakes bank.
func (s *Store) SubmitAnswer(ctx context.Context, cardID int64, selected string) (*AnswerResult, error) {
	const op = "submit answer"

	var res AnswerResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		card, err := getCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card == nil {
			return &ValidationError{Op: op, Msg: "card not found", Err: ErrNotFound}
		}
		if card.Type != DeckMCQ {
			return invalid(op, "card %d is a %s card; answers are checked for mcq cards only", card.ID, card.Type)
		}

		var options []string
		for _, o := range card.Options {
			if strings.TrimSpace(o) != "" {
				options = append(options, o)
			}
		}
		if len(options) == 0 {
			options = defaultOptions
		}
		res.Selected = matchOption(options, selected)
		res.Correct = matchOption(options, card.Answer)
		res.IsCorrect = res.Selected == res.Correct

		now := s.timestamp()
		if err := recordReview(ctx, tx, card.ID, res.IsCorrect, now); err != nil {
			return err
		}
		if !res.IsCorrect {
			if res.Mistake, err = upsertMistake(ctx, tx, card, now); err != nil {
				return err
			}
		}
		res.Card, err = getCard(ctx, tx, card.ID)
		return err
	})
	if err != nil {
		return nil, wrapError(op, err)
	}
	return &res, nil
}

// matchOption resolves raw to one of options: exact text, then a 0-based
// and a 1-based index, then a leading letter A-D. Anything else resolves to
// the first option.
func matchOption(options []string, raw string) string {
	raw = strings.TrimSpace(raw)
	if len(options) == 0 {
		return raw
	}
	for _, o := range options {
		if o == raw {
			return o
		}
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 0 && n < len(options) {
			return options[n]
		}
		if n >= 1 && n <= len(options) {
			return options[n-1]
		}
	}
	if r, _ := utf8.DecodeRuneInString(strings.ToUpper(raw)); r >= 'A' && r <= 'D' {
		if i := int(r - 'A'); i < len(options) {
			return options[i]
		}
	}
	return options[0]
}

func recordReview(ctx context.Context, tx *sql.Tx, cardID int64, known bool, now string) error {
	knownInc, unknownInc := 0, 1
	if known {
		knownInc, unknownInc = 1, 0
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE cards SET seen = seen + 1, known = known + ?, unknown = unknown + ?, last_reviewed_at = ?
		WHERE id = ?`, knownInc, unknownInc, now, cardID)
	return err
}

// UpsertMistake files a card in the mistakes bank, or reactivates its entry
// and bumps the wrong count when it is already there
func (s *Store) UpsertMistake(ctx context.Context, cardID int64) (*Mistake, error) {
	const op = "upsert mistake"

	var m *Mistake
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		card, err := getCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card == nil {
			return &ValidationError{Op: op, Msg: "card not found", Err: ErrNotFound}
		}
		m, err = upsertMistake(ctx, tx, card, s.timestamp())
		return err
	})
	if err != nil {
		return nil, wrapError(op, err)
	}
	return m, nil
}

func upsertMistake(ctx context.Context, tx *sql.Tx, card *Card, now string) (*Mistake, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO mistakes (card_id, course_id, status, wrong_count, added_at, last_wrong_at, updated_at)
		VALUES (?, ?, 'active', 1, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			status = 'active',
			wrong_count = mistakes.wrong_count + 1,
			last_wrong_at = excluded.last_wrong_at,
			updated_at = excluded.updated_at`,
		card.ID, card.CourseID, now, now, now)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx, `SELECT `+mistakeColumns+` FROM mistakes m WHERE m.card_id = ?`, card.ID)
	return scanMistake(row)
}

// ListMistakes returns the course's mistakes with their cards, most often
// missed first
func (s *Store) ListMistakes(ctx context.Context, courseID string, f MistakeFilter) ([]Mistake, error) {
	const op = "list mistakes"

	where := []string{"m.course_id = ?"}
	args := []any{courseID}
	if f.Status != "" {
		status, err := ParseMistakeStatus(string(f.Status))
		if err != nil {
			return nil, invalid(op, "%v", err)
		}
		where = append(where, "m.status = ?")
		args = append(args, string(status))
	}
	if f.CardType != "" {
		where = append(where, "c.card_type = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(string(f.CardType))))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mistakeColumns+`, `+cardColumns+`
		FROM mistakes m JOIN cards c ON c.id = m.card_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY m.wrong_count DESC, m.last_wrong_at DESC, m.id DESC`, args...)
	if err != nil {
		return nil, wrapError(op, err)
	}
	defer rows.Close()

	var out []Mistake
	for rows.Next() {
		var (
			mr mistakeRow
			cr cardRow
		)
		if err := rows.Scan(append(mr.dest(), cr.dest()...)...); err != nil {
			return nil, wrapError(op, err)
		}
		m := mr.mistake()
		m.Card = cr.card()
		out = append(out, *m)
	}
	return out, wrapError(op, rows.Err())
}

// MarkMistakeMastered retires a mistake. It reports whether the mistake
// exists.
func (s *Store) MarkMistakeMastered(ctx context.Context, id int64) (bool, error) {
	return s.setMistakeStatus(ctx, "master mistake", id, MistakeMastered)
}

// ArchiveMistake hides a mistake from review. It reports whether the
// mistake exists.
func (s *Store) ArchiveMistake(ctx context.Context, id int64) (bool, error) {
	return s.setMistakeStatus(ctx, "archive mistake", id, MistakeArchived)
}

func (s *Store) setMistakeStatus(ctx context.Context, op string, id int64, status MistakeStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE mistakes SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.timestamp(), id)
	if err != nil {
		return false, wrapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapError(op, err)
	}
	return n > 0, nil
}

// ParseMistakeStatus normalizes s to a known MistakeStatus
func ParseMistakeStatus(s string) (MistakeStatus, error) {
	st := MistakeStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case MistakeActive, MistakeMastered, MistakeArchived:
		return st, nil
	}
	return "", errors.New("mistake status must be active, mastered or archived")
}

const mistakeColumns = `m.id, m.card_id, m.course_id, m.status, m.wrong_count, m.added_at, m.last_wrong_at, m.updated_at`

type mistakeRow struct {
	m                         Mistake
	status                    string
	added, lastWrong, updated string
}

func (r *mistakeRow) dest() []any {
	return []any{&r.m.ID, &r.m.CardID, &r.m.CourseID, &r.status, &r.m.WrongCount, &r.added, &r.lastWrong, &r.updated}
}

func (r *mistakeRow) mistake() *Mistake {
	m := r.m
	m.Status = MistakeStatus(r.status)
	m.AddedAt, m.LastWrongAt, m.UpdatedAt = parseTime(r.added), parseTime(r.lastWrong), parseTime(r.updated)
	return &m
}

func scanMistake(row rowScanner) (*Mistake, error) {
	var r mistakeRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.mistake(), nil
}
