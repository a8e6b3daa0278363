package workspace

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScopeSetTracksArtifacts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")

	def, err := s.EnsureDefaultScopeSet(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, def.IsDefault)
	assert.Equal(t, DefaultScopeSetName, def.Name)
	assert.Empty(t, def.ArtifactIDs)

	a := mustArtifact(t, s, c.ID, "w1.pdf", "one")
	b := mustArtifact(t, s, c.ID, "w2.pdf", "two")

	ids, err := s.ResolveScopeArtifactIDs(ctx, c.ID, def.ID)
	require.NoError(t, err)
	assert.Equal(t, NewIDSet(a.ID, b.ID), ids)

	// Eager recomputation keeps the stored membership current too.
	stored, err := s.ListScopeSetArtifactIDs(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, NewIDSet(a.ID, b.ID), stored)

	require.NoError(t, s.RemoveArtifact(ctx, c.ID, a.ID))
	ids, err = s.ResolveScopeArtifactIDs(ctx, c.ID, def.ID)
	require.NoError(t, err)
	assert.Equal(t, IDSet{b.ID}, ids)

	again, err := s.EnsureDefaultScopeSet(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, def.ID, again.ID, "exactly one default per course")
}

func TestDefaultScopeSetIsProtected(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")
	a := mustArtifact(t, s, c.ID, "w1.pdf", "one")
	def, err := s.EnsureDefaultScopeSet(ctx, c.ID)
	require.NoError(t, err)

	_, err = s.RenameScopeSet(ctx, def.ID, "Everything")
	assert.ErrorIs(t, err, ErrValidation)

	err = s.DeleteScopeSet(ctx, def.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.ReplaceScopeSetItems(ctx, def.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateScopeSet(ctx, c.ID, "all materials")
	assert.ErrorIs(t, err, ErrValidation)

	got, err := s.GetScopeSet(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultScopeSetName, got.Name)
	assert.Equal(t, IDSet{a.ID}, got.ArtifactIDs)
}

func TestCreateRenameDeleteScopeSet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")

	id, err := s.CreateScopeSet(ctx, c.ID, "  Midterm  ")
	require.NoError(t, err)
	_, err = s.CreateScopeSet(ctx, c.ID, "Midterm")
	assert.ErrorIs(t, err, ErrValidation, "duplicate name")
	_, err = s.CreateScopeSet(ctx, c.ID, " ")
	assert.ErrorIs(t, err, ErrValidation, "empty name")
	_, err = s.CreateScopeSet(ctx, c.ID, strings.Repeat("x", 121))
	assert.ErrorIs(t, err, ErrValidation, "long name")

	finalID, err := s.CreateScopeSet(ctx, c.ID, "Final")
	require.NoError(t, err)

	renamed, err := s.RenameScopeSet(ctx, id, "Midterm Review")
	require.NoError(t, err)
	assert.Equal(t, "Midterm Review", renamed.Name)

	same, err := s.RenameScopeSet(ctx, id, "Midterm Review")
	require.NoError(t, err)
	assert.Equal(t, "Midterm Review", same.Name)

	_, err = s.RenameScopeSet(ctx, finalID, "Midterm Review")
	assert.ErrorIs(t, err, ErrValidation)

	sets, err := s.ListScopeSets(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.True(t, sets[0].IsDefault)
	assert.Equal(t, "Midterm Review", sets[1].Name)
	assert.Equal(t, "Final", sets[2].Name)

	require.NoError(t, s.DeleteScopeSet(ctx, id))
	_, err = s.GetScopeSet(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameAndDeleteMissingScopeSetAreNoOps(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	set, err := s.RenameScopeSet(ctx, 404, "Anything")
	assert.NoError(t, err)
	assert.Nil(t, set)

	assert.NoError(t, s.DeleteScopeSet(ctx, 404))
}

func TestReplaceScopeSetItemsIsFullOverwrite(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")
	a := mustArtifact(t, s, c.ID, "a.pdf", "a")
	b := mustArtifact(t, s, c.ID, "b.pdf", "b")
	d := mustArtifact(t, s, c.ID, "d.pdf", "d")

	id, err := s.CreateScopeSet(ctx, c.ID, "Week 1-3")
	require.NoError(t, err)

	n, err := s.ReplaceScopeSetItems(ctx, id, []int64{a.ID, b.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.ReplaceScopeSetItems(ctx, id, []int64{b.ID, d.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := s.ListScopeSetArtifactIDs(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, NewIDSet(b.ID, d.ID), ids)

	n, err = s.ReplaceScopeSetItems(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	ids, err = s.ResolveScopeArtifactIDs(ctx, c.ID, id)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReplaceScopeSetItemsRejectsForeignArtifacts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")
	other := mustCourse(t, s, "MATH1131")
	mine := mustArtifact(t, s, c.ID, "a.pdf", "a")
	theirs := mustArtifact(t, s, other.ID, "m.pdf", "m")

	id, err := s.CreateScopeSet(ctx, c.ID, "Mixed")
	require.NoError(t, err)
	_, err = s.ReplaceScopeSetItems(ctx, id, []int64{mine.ID})
	require.NoError(t, err)

	_, err = s.ReplaceScopeSetItems(ctx, id, []int64{mine.ID, theirs.ID})
	assert.ErrorIs(t, err, ErrValidation)

	ids, err := s.ListScopeSetArtifactIDs(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, IDSet{mine.ID}, ids, "rejected replace leaves membership unchanged")

	_, err = s.ReplaceScopeSetItems(ctx, 999, []int64{mine.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveScopeArtifactIDsAcrossCourses(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")
	other := mustCourse(t, s, "MATH1131")
	a := mustArtifact(t, s, c.ID, "a.pdf", "a")

	id, err := s.CreateScopeSet(ctx, c.ID, "Mine")
	require.NoError(t, err)
	_, err = s.ReplaceScopeSetItems(ctx, id, []int64{a.ID})
	require.NoError(t, err)

	ids, err := s.ResolveScopeArtifactIDs(ctx, other.ID, id)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.ResolveScopeArtifactIDs(ctx, c.ID, 12345)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.ResolveScopeArtifactIDs(ctx, "", id)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListScopeSetsUnknownCourse(t *testing.T) {
	s, _ := newTestStore(t)
	sets, err := s.ListScopeSets(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, sets)
}
