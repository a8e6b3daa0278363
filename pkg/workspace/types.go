package workspace

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Course is the top-level container for a user's study materials
type Course struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Artifact is an uploaded document, addressed by the SHA-256 of its bytes
type Artifact struct {
	ID          int64     `json:"id"`
	CourseID    string    `json:"course_id"`
	FileName    string    `json:"file_name"`
	ContentHash string    `json:"file_hash"`
	StoragePath string    `json:"file_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScopeSet is a named selection of a course's artifacts. The default set
// always holds every artifact of the course.
type ScopeSet struct {
	ID          int64     `json:"id"`
	CourseID    string    `json:"course_id"`
	Name        string    `json:"name"`
	IsDefault   bool      `json:"is_default"`
	ArtifactIDs IDSet     `json:"artifact_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OutputType names the kind of generated study artifact
type OutputType string

const (
	OutputSummary OutputType = "summary"
	OutputGraph   OutputType = "graph"
	OutputOutline OutputType = "outline"
	OutputQuiz    OutputType = "quiz"
)

// OutputTypes lists every supported output type
var OutputTypes = []OutputType{OutputSummary, OutputGraph, OutputOutline, OutputQuiz}

// ParseOutputType normalizes s and checks it against OutputTypes
func ParseOutputType(s string) (OutputType, error) {
	t := OutputType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range OutputTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported output type %q", s)
}

// OutputStatus records whether generation succeeded
type OutputStatus string

const (
	StatusSuccess OutputStatus = "success"
	StatusFailed  OutputStatus = "failed"
)

// Output is an immutable generated artifact. ScopeArtifactIDs is the scope
// membership captured when the output was created.
type Output struct {
	ID               int64        `json:"id"`
	CourseID         string       `json:"course_id"`
	Type             OutputType   `json:"output_type"`
	ScopeSetID       *int64       `json:"scope_set_id"`
	ScopeArtifactIDs IDSet        `json:"scope_artifact_ids"`
	Content          string       `json:"content"`
	ModelUsed        string       `json:"model_used"`
	Status           OutputStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Quiz decodes the content of a quiz output
func (o *Output) Quiz() (*QuizContent, error) {
	if o.Type != OutputQuiz {
		return nil, fmt.Errorf("output %d is a %s, not a quiz", o.ID, o.Type)
	}
	var q QuizContent
	if err := json.Unmarshal([]byte(o.Content), &q); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	return &q, nil
}

// Graph decodes the content of a graph output
func (o *Output) Graph() (*GraphContent, error) {
	if o.Type != OutputGraph {
		return nil, fmt.Errorf("output %d is a %s, not a graph", o.ID, o.Type)
	}
	var g GraphContent
	if err := json.Unmarshal([]byte(o.Content), &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}

// QuizContent is the payload of a quiz output
type QuizContent struct {
	Title     string         `json:"quiz_title"`
	Questions []QuizQuestion `json:"questions"`
}

type QuizQuestion struct {
	ID            int      `json:"id,omitempty"`
	Type          string   `json:"type,omitempty"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// GraphContent is the payload of a knowledge-graph output
type GraphContent struct {
	Nodes      []GraphNode     `json:"nodes"`
	Links      []GraphLink     `json:"links"`
	Categories []GraphCategory `json:"categories,omitempty"`
}

type GraphNode struct {
	Name       string `json:"name"`
	Category   int    `json:"category"`
	SymbolSize int    `json:"symbolSize,omitempty"`
}

type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type GraphCategory struct {
	Name string `json:"name"`
}

// DeckType is the kind of cards a deck holds
type DeckType string

const (
	DeckVocab DeckType = "vocab"
	DeckMCQ   DeckType = "mcq"
)

// Deck groups flashcards of one type within a course
type Deck struct {
	ID        int64     `json:"id"`
	CourseID  string    `json:"course_id"`
	Name      string    `json:"name"`
	Type      DeckType  `json:"deck_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Card is a vocab card (Front/Back) or a multiple-choice card
// (Question/Options/Answer/Explanation)
type Card struct {
	ID          int64     `json:"id"`
	DeckID      int64     `json:"deck_id"`
	CourseID    string    `json:"course_id"`
	Type        DeckType  `json:"card_type"`
	Front       string    `json:"front,omitempty"`
	Back        string    `json:"back,omitempty"`
	Question    string    `json:"question,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Answer      string    `json:"answer,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	Stats       CardStats `json:"stats"`
	CreatedAt   time.Time `json:"created_at"`
}

// CardStats counts how often a card was reviewed and how it went
type CardStats struct {
	Seen           int        `json:"seen"`
	Known          int        `json:"known"`
	Unknown        int        `json:"unknown"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
}

// ReviewAction is a self-assessment of a card
type ReviewAction string

const (
	ReviewKnown   ReviewAction = "known"
	ReviewUnknown ReviewAction = "unknown"
)

// MistakeStatus is the lifecycle state of a mistakes-bank entry
type MistakeStatus string

const (
	MistakeActive   MistakeStatus = "active"
	MistakeMastered MistakeStatus = "mastered"
	MistakeArchived MistakeStatus = "archived"
)

// Mistake is a card the user got wrong. Getting it wrong again reactivates
// it and bumps WrongCount.
type Mistake struct {
	ID          int64         `json:"id"`
	CardID      int64         `json:"card_id"`
	CourseID    string        `json:"course_id"`
	Status      MistakeStatus `json:"status"`
	WrongCount  int           `json:"wrong_count"`
	AddedAt     time.Time     `json:"added_at"`
	LastWrongAt time.Time     `json:"last_wrong_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Card        *Card         `json:"card,omitempty"`
}

// MistakeFilter narrows ListMistakes. Zero fields match everything.
type MistakeFilter struct {
	Status   MistakeStatus
	CardType DeckType
}

// ReviewResult is the outcome of ReviewCard. Mistake is set when the card
// was marked unknown.
type ReviewResult struct {
	Card    *Card    `json:"card"`
	Mistake *Mistake `json:"mistake"`
}

// AnswerResult is the outcome of SubmitAnswer
type AnswerResult struct {
	Card      *Card    `json:"card"`
	Selected  string   `json:"selected_option"`
	Correct   string   `json:"correct_answer"`
	IsCorrect bool     `json:"is_correct"`
	Mistake   *Mistake `json:"mistake"`
}

type VocabCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type MCQCard struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Metric is one timed operation
type Metric struct {
	ID        int64          `json:"id"`
	Operation string         `json:"operation"`
	CourseID  string         `json:"course_id"`
	Elapsed   time.Duration  `json:"elapsed"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
}

// MetricSummary aggregates metrics per operation
type MetricSummary struct {
	Operation string        `json:"operation"`
	Total     int           `json:"total"`
	Avg       time.Duration `json:"avg"`
	Min       time.Duration `json:"min"`
	Max       time.Duration `json:"max"`
	LastAt    time.Time     `json:"last_at"`
}
