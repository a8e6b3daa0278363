package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleQuiz = `{"quiz_title":"Week 1","questions":[{"id":1,"type":"MCQ","question":"What is 2+2?","options":["3","4","5","6"],"correct_answer":"4"}]}`

const sampleGraph = `{"nodes":[{"name":"Sorting","category":0},{"name":"Quicksort","category":1}],"links":[{"source":"Sorting","target":"Quicksort"}]}`

func TestCreateOutputSnapshotsScope(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")
	a := mustArtifact(t, s, c.ID, "a.pdf", "a")
	b := mustArtifact(t, s, c.ID, "b.pdf", "b")

	setID, err := s.CreateScopeSet(ctx, c.ID, "Midterm")
	require.NoError(t, err)
	_, err = s.ReplaceScopeSetItems(ctx, setID, []int64{a.ID, b.ID})
	require.NoError(t, err)

	id, err := s.CreateOutput(ctx, OutputParams{
		CourseID:   c.ID,
		Type:       "Summary",
		Content:    "Key points of weeks 1-3.",
		ScopeSetID: &setID,
		ModelUsed:  "gpt-4o",
	})
	require.NoError(t, err)

	// Later edits to the scope set do not touch the snapshot.
	_, err = s.ReplaceScopeSetItems(ctx, setID, []int64{a.ID})
	require.NoError(t, err)

	out, err := s.GetOutput(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, OutputSummary, out.Type)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, NewIDSet(a.ID, b.ID), out.ScopeArtifactIDs)
	require.NotNil(t, out.ScopeSetID)
	assert.Equal(t, setID, *out.ScopeSetID)

	// Deleting the scope set leaves the output row as it was written.
	require.NoError(t, s.DeleteScopeSet(ctx, setID))
	after, err := s.GetOutput(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, out, after)
	require.NotNil(t, after.ScopeSetID)
	assert.Equal(t, setID, *after.ScopeSetID)
}

func TestCreateOutputExplicitIDsAndDefaultScope(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")
	a := mustArtifact(t, s, c.ID, "a.pdf", "a")
	b := mustArtifact(t, s, c.ID, "b.pdf", "b")

	def, err := s.EnsureDefaultScopeSet(ctx, c.ID)
	require.NoError(t, err)

	id, err := s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputOutline, Content: "1. Intro", ScopeSetID: &def.ID})
	require.NoError(t, err)
	out, err := s.GetOutput(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, NewIDSet(a.ID, b.ID), out.ScopeArtifactIDs)

	id, err = s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputOutline, Content: "2. Body", ScopeArtifactIDs: []int64{b.ID, b.ID}})
	require.NoError(t, err)
	out, err = s.GetOutput(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, IDSet{b.ID}, out.ScopeArtifactIDs)
	assert.Nil(t, out.ScopeSetID)
}

func TestCreateOutputValidatesPayload(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")
	other := mustCourse(t, s, "MATH1131")
	foreignSet, err := s.CreateScopeSet(ctx, other.ID, "Theirs")
	require.NoError(t, err)

	tests := []struct {
		name string
		p    OutputParams
	}{
		{"unknown type", OutputParams{CourseID: c.ID, Type: "syllabus", Content: "x"}},
		{"empty summary", OutputParams{CourseID: c.ID, Type: OutputSummary, Content: "  "}},
		{"quiz not json", OutputParams{CourseID: c.ID, Type: OutputQuiz, Content: "Q1: ..."}},
		{"quiz blank question", OutputParams{CourseID: c.ID, Type: OutputQuiz, Content: `{"questions":[{"question":" "}]}`}},
		{"graph dangling link", OutputParams{CourseID: c.ID, Type: OutputGraph, Content: `{"nodes":[{"name":"A"}],"links":[{"source":"A","target":"B"}]}`}},
		{"bad status", OutputParams{CourseID: c.ID, Type: OutputSummary, Content: "x", Status: "pending"}},
		{"foreign scope set", OutputParams{CourseID: c.ID, Type: OutputSummary, Content: "x", ScopeSetID: &foreignSet}},
		{"missing course", OutputParams{CourseID: "nope", Type: OutputSummary, Content: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateOutput(ctx, tt.p)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	outs, err := s.ListOutputs(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Empty(t, outs)
}

func TestFailedOutputSkipsContentValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")

	id, err := s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputQuiz, Content: "provider timeout", Status: StatusFailed})
	require.NoError(t, err)
	out, err := s.GetOutput(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
}

func TestTypedPayloadAccessors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")

	quizID, err := s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputQuiz, Content: sampleQuiz})
	require.NoError(t, err)
	graphID, err := s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputGraph, Content: sampleGraph})
	require.NoError(t, err)

	quizOut, err := s.GetOutput(ctx, quizID)
	require.NoError(t, err)
	quiz, err := quizOut.Quiz()
	require.NoError(t, err)
	assert.Equal(t, "Week 1", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "4", quiz.Questions[0].CorrectAnswer)
	_, err = quizOut.Graph()
	assert.Error(t, err)

	graphOut, err := s.GetOutput(ctx, graphID)
	require.NoError(t, err)
	graph, err := graphOut.Graph()
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 2)
	assert.Equal(t, "Quicksort", graph.Links[0].Target)
}

func TestListOutputsFiltersByType(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	c := mustCourse(t, s, "COMP3900")

	first, err := s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputSummary, Content: "one"})
	require.NoError(t, err)
	_, err = s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputQuiz, Content: sampleQuiz})
	require.NoError(t, err)
	second, err := s.CreateOutput(ctx, OutputParams{CourseID: c.ID, Type: OutputSummary, Content: "two"})
	require.NoError(t, err)

	all, err := s.ListOutputs(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	summaries, err := s.ListOutputs(ctx, c.ID, OutputSummary)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second, summaries[0].ID)
	assert.Equal(t, first, summaries[1].ID)

	_, err = s.ListOutputs(ctx, c.ID, "syllabus")
	assert.ErrorIs(t, err, ErrValidation)
}
