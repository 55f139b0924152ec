package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMalformedQuestionSet = errors.New("malformed question set")

type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// HasOption reports whether option is exactly one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// QuestionSet is read-only once built and safe to share between sessions.
type QuestionSet struct {
	id          string
	title       string
	description string
	questions   []Question
}

type SetInfo struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	QuestionCount int    `json:"question_count"`
}

// SetDocument is the wire form used by file, object and cache providers.
type SetDocument struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

func NewQuestionSet(id, title, description string, questions []Question) (*QuestionSet, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: set %q has no questions", ErrMalformedQuestionSet, id)
	}

	seenIDs := make(map[string]bool, len(questions))
	copied := make([]Question, len(questions))
	for i, q := range questions {
		if q.ID != "" {
			if seenIDs[q.ID] {
				return nil, fmt.Errorf("%w: duplicate question id %q", ErrMalformedQuestionSet, q.ID)
			}
			seenIDs[q.ID] = true
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d has %d options, need at least 2", ErrMalformedQuestionSet, i+1, len(q.Options))
		}

		seenOptions := make(map[string]bool, len(q.Options))
		for _, option := range q.Options {
			if seenOptions[option] {
				return nil, fmt.Errorf("%w: question %d repeats option %q", ErrMalformedQuestionSet, i+1, option)
			}
			seenOptions[option] = true
		}
		if !seenOptions[q.CorrectAnswer] {
			return nil, fmt.Errorf("%w: question %d correct answer %q is not an option", ErrMalformedQuestionSet, i+1, q.CorrectAnswer)
		}

		copied[i] = Question{
			ID:            q.ID,
			Prompt:        q.Prompt,
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: q.CorrectAnswer,
		}
		if copied[i].ID == "" {
			copied[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}

	return &QuestionSet{
		id:          id,
		title:       title,
		description: description,
		questions:   copied,
	}, nil
}

func NewQuestionSetFromDocument(doc SetDocument) (*QuestionSet, error) {
	return NewQuestionSet(doc.ID, doc.Title, doc.Description, doc.Questions)
}

func (s *QuestionSet) ID() string    { return s.id }
func (s *QuestionSet) Title() string { return s.title }
func (s *QuestionSet) Len() int      { return len(s.questions) }

// Question returns a copy so callers cannot mutate the shared set.
func (s *QuestionSet) Question(i int) Question {
	q := s.questions[i]
	q.Options = append([]string(nil), q.Options...)
	return q
}

func (s *QuestionSet) Questions() []Question {
	out := make([]Question, len(s.questions))
	for i := range s.questions {
		out[i] = s.Question(i)
	}
	return out
}

func (s *QuestionSet) Info() SetInfo {
	return SetInfo{
		ID:            s.id,
		Title:         s.title,
		Description:   s.description,
		QuestionCount: len(s.questions),
	}
}

func (s *QuestionSet) Document() SetDocument {
	return SetDocument{
		ID:          s.id,
		Title:       s.title,
		Description: s.description,
		Questions:   s.Questions(),
	}
}

// Answer is an optional option value. The zero value means "none".
type Answer struct {
	Value string
	Valid bool
}

func SomeAnswer(value string) Answer {
	return Answer{Value: value, Valid: true}
}

func (a Answer) Equals(value string) bool {
	return a.Valid && a.Value == value
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Answer{}
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*a = SomeAnswer(value)
	return nil
}

type QuestionResult struct {
	QuestionID    string `json:"question_id"`
	Prompt        string `json:"prompt"`
	Submitted     Answer `json:"submitted"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

type QuizResult struct {
	ID         string           `json:"id"`
	SessionID  string           `json:"session_id"`
	PlayerID   string           `json:"player_id"`
	SetID      string           `json:"set_id"`
	Attempt    int              `json:"attempt"`
	Score      int              `json:"score"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Answers    []QuestionResult `json:"answers"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}
