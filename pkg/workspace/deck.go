package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// CreateDeck adds an empty deck to the course
func (s *Store) CreateDeck(ctx context.Context, courseID, name string, typ DeckType) (int64, error) {
	const op = "create deck"

	name = strings.TrimSpace(name)
	typ = DeckType(strings.ToLower(strings.TrimSpace(string(typ))))
	switch {
	case courseID == "":
		return 0, invalid(op, "course is required")
	case name == "":
		return 0, invalid(op, "deck name is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		return 0, invalid(op, "deck name must be at most %d characters", maxNameLen)
	case typ != DeckVocab && typ != DeckMCQ:
		return 0, invalid(op, "deck type must be vocab or mcq")
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := courseExists(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Op: op, Msg: "course not found", Err: ErrNotFound}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO decks (course_id, name, deck_type, created_at) VALUES (?, ?, ?, ?)`,
			courseID, name, string(typ), s.timestamp())
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

// ListDecks returns the course's decks, newest first
func (s *Store) ListDecks(ctx context.Context, courseID string) ([]Deck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_id, name, deck_type, created_at FROM decks
		WHERE course_id = ?
		ORDER BY created_at DESC, id DESC`, courseID)
	if err != nil {
		return nil, wrapError("list decks", err)
	}
	defer rows.Close()

	var out []Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, wrapError("list decks", err)
		}
		out = append(out, *d)
	}
	return out, wrapError("list decks", rows.Err())
}

// GetDeck returns the deck with id, or ErrNotFound
func (s *Store) GetDeck(ctx context.Context, id int64) (*Deck, error) {
	d, err := getDeck(ctx, s.db, id)
	if err != nil {
		return nil, wrapError("get deck", err)
	}
	if d == nil {
		return nil, wrapError("get deck", ErrNotFound)
	}
	return d, nil
}

// ReplaceVocabCards replaces every card of a vocab deck. Cards without a
// front are dropped. It returns the number of cards stored.
func (s *Store) ReplaceVocabCards(ctx context.Context, deckID int64, cards []VocabCard) (int, error) {
	const op = "replace vocab cards"
	inserted := 0
	err := s.replaceCards(ctx, op, deckID, DeckVocab, func(tx *sql.Tx, d *Deck, now string) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cards (deck_id, course_id, card_type, front, back, created_at)
			VALUES (?, ?, 'vocab', ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range cards {
			front := strings.TrimSpace(c.Front)
			if front == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, d.ID, d.CourseID, front, strings.TrimSpace(c.Back), now); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ReplaceMCQCards replaces every card of an mcq deck. Questions without text
// are dropped. It returns the number of cards stored.
func (s *Store) ReplaceMCQCards(ctx context.Context, deckID int64, questions []MCQCard) (int, error) {
	const op = "replace mcq cards"
	inserted := 0
	err := s.replaceCards(ctx, op, deckID, DeckMCQ, func(tx *sql.Tx, d *Deck, now string) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cards (deck_id, course_id, card_type, question, options_json, answer, explanation, created_at)
			VALUES (?, ?, 'mcq', ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, q := range questions {
			question := strings.TrimSpace(q.Question)
			if question == "" {
				continue
			}
			options := q.Options
			if options == nil {
				options = []string{}
			}
			opts, err := json.Marshal(options)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx, d.ID, d.CourseID, question, string(opts), q.CorrectAnswer, q.Explanation, now)
			if err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) replaceCards(ctx context.Context, op string, deckID int64, want DeckType, insert func(*sql.Tx, *Deck, string) error) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		d, err := getDeck(ctx, tx, deckID)
		if err != nil {
			return err
		}
		if d == nil {
			return &ValidationError{Op: op, Msg: "deck not found", Err: ErrNotFound}
		}
		if d.Type != want {
			return invalid(op, "deck %d holds %s cards", d.ID, d.Type)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = ?`, deckID); err != nil {
			return err
		}
		return insert(tx, d, s.timestamp())
	})
	return wrapError(op, err)
}

// ListCards returns a deck's cards in insertion order
func (s *Store) ListCards(ctx context.Context, deckID int64) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.deck_id = ? ORDER BY c.id ASC`, deckID)
	if err != nil {
		return nil, wrapError("list cards", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		var r cardRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, wrapError("list cards", err)
		}
		out = append(out, *r.card())
	}
	return out, wrapError("list cards", rows.Err())
}

// GetCard returns the card with id, or ErrNotFound
func (s *Store) GetCard(ctx context.Context, id int64) (*Card, error) {
	c, err := getCard(ctx, s.db, id)
	if err != nil {
		return nil, wrapError("get card", err)
	}
	if c == nil {
		return nil, wrapError("get card", ErrNotFound)
	}
	return c, nil
}

const cardColumns = `c.id, c.deck_id, c.course_id, c.card_type, c.front, c.back, c.question, c.options_json,
	c.answer, c.explanation, c.seen, c.known, c.unknown, c.last_reviewed_at, c.created_at`

// cardRow holds the raw columns of cardColumns
type cardRow struct {
	c            Card
	typ          string
	options      string
	lastReviewed sql.NullString
	created      string
}

func (r *cardRow) dest() []any {
	return []any{&r.c.ID, &r.c.DeckID, &r.c.CourseID, &r.typ, &r.c.Front, &r.c.Back, &r.c.Question, &r.options,
		&r.c.Answer, &r.c.Explanation, &r.c.Stats.Seen, &r.c.Stats.Known, &r.c.Stats.Unknown, &r.lastReviewed, &r.created}
}

func (r *cardRow) card() *Card {
	c := r.c
	c.Type = DeckType(r.typ)
	if json.Unmarshal([]byte(r.options), &c.Options) != nil {
		c.Options = nil
	}
	if r.lastReviewed.Valid {
		t := parseTime(r.lastReviewed.String)
		c.Stats.LastReviewedAt = &t
	}
	c.CreatedAt = parseTime(r.created)
	return &c
}

func getCard(ctx context.Context, q querier, id int64) (*Card, error) {
	var r cardRow
	err := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = ?`, id).Scan(r.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.card(), nil
}

func getDeck(ctx context.Context, q querier, id int64) (*Deck, error) {
	row := q.QueryRowContext(ctx, `SELECT id, course_id, name, deck_type, created_at FROM decks WHERE id = ?`, id)
	d, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func scanDeck(row rowScanner) (*Deck, error) {
	var d Deck
	var typ, created string
	if err := row.Scan(&d.ID, &d.CourseID, &d.Name, &typ, &created); err != nil {
		return nil, err
	}
	d.Type, d.CreatedAt = DeckType(typ), parseTime(created)
	return &d, nil
}
