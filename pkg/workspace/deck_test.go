package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecksAndCards(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")

	vocabID, err := s.CreateDeck(ctx, c.ID, "Terms", "VOCAB")
	require.NoError(t, err)
	mcqID, err := s.CreateDeck(ctx, c.ID, "Practice", DeckMCQ)
	require.NoError(t, err)

	n, err := s.ReplaceVocabCards(ctx, vocabID, []VocabCard{
		{Front: "Big-O", Back: "Asymptotic upper bound"},
		{Front: "  ", Back: "dropped"},
		{Front: "Heap", Back: "Priority queue structure"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.ReplaceVocabCards(ctx, vocabID, []VocabCard{{Front: "Trie", Back: "Prefix tree"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cards, err := s.ListCards(ctx, vocabID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Trie", cards[0].Front)
	assert.Equal(t, DeckVocab, cards[0].Type)
	assert.Equal(t, c.ID, cards[0].CourseID)

	n, err = s.ReplaceMCQCards(ctx, mcqID, []MCQCard{
		{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Explanation: "arithmetic"},
		{Question: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cards, err = s.ListCards(ctx, mcqID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, []string{"3", "4"}, cards[0].Options)
	assert.Equal(t, "4", cards[0].Answer)

	decks, err := s.ListDecks(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, mcqID, decks[0].ID)

	d, err := s.GetDeck(ctx, vocabID)
	require.NoError(t, err)
	assert.Equal(t, DeckVocab, d.Type)
}

func TestDeckValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")

	_, err := s.CreateDeck(ctx, c.ID, "Terms", "essay")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.CreateDeck(ctx, c.ID, " ", DeckVocab)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.CreateDeck(ctx, "nope", "Terms", DeckVocab)
	assert.ErrorIs(t, err, ErrValidation)

	vocabID, err := s.CreateDeck(ctx, c.ID, "Terms", DeckVocab)
	require.NoError(t, err)
	_, err = s.ReplaceMCQCards(ctx, vocabID, []MCQCard{{Question: "?"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.ReplaceVocabCards(ctx, 999, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetDeck(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
