// Package engine implements the quiz progression state machine: answer
// selection, submission and grading, advancement, completion and restart.
//
// A session moves through three phases:
//
//	active --SubmitAnswer--> answered --Advance--> active (next question)
//	                                   \-Advance--> completed (after the last question)
//
// Restart is legal from any phase and replaces the session wholesale.
// Every failed call leaves the session untouched.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"quiz-engine/internal/constants"
	"quiz-engine/internal/models"
)

type Phase string

const (
	PhaseActive    Phase = constants.PhaseActive
	PhaseAnswered  Phase = constants.PhaseAnswered
	PhaseCompleted Phase = constants.PhaseCompleted
)

var (
	ErrInvalidOption     = errors.New("invalid option")
	ErrNoAnswerSelected  = errors.New("no answer selected")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrSessionCompleted  = errors.New("session completed")
)

type session struct {
	currentIndex int
	pending      models.Answer
	phase        Phase
	score        int
	answerLog    []models.Answer
}

func newSession(questionCount int) *session {
	return &session{
		phase:     PhaseActive,
		answerLog: make([]models.Answer, questionCount),
	}
}

// Grade is the outcome of a single submission.
type Grade struct {
	QuestionIndex int           `json:"question_index"`
	QuestionID    string        `json:"question_id"`
	Submitted     models.Answer `json:"submitted"`
	CorrectAnswer string        `json:"correct_answer"`
	IsCorrect     bool          `json:"is_correct"`
	Score         int           `json:"score"`
}

// Engine owns exactly one session at a time. All methods are safe for
// concurrent use; each call is serialized on the engine's mutex.
type Engine struct {
	mu      sync.Mutex
	set     *models.QuestionSet
	session *session
}

func New(set *models.QuestionSet) (*Engine, error) {
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("%w: question set is empty", models.ErrMalformedQuestionSet)
	}
	return &Engine{
		set:     set,
		session: newSession(set.Len()),
	}, nil
}

func (e *Engine) QuestionSet() *models.QuestionSet {
	return e.set
}

// SelectAnswer records option as the pending answer. The last selection wins.
func (e *Engine) SelectAnswer(option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.phase != PhaseActive {
		return fmt.Errorf("%w: cannot select an answer while %s", ErrIllegalTransition, s.phase)
	}

	question := e.set.Question(s.currentIndex)
	if !question.HasOption(option) {
		return fmt.Errorf("%w: %q is not an option of question %s", ErrInvalidOption, option, question.ID)
	}

	s.pending = models.SomeAnswer(option)
	return nil
}

// SubmitAnswer grades the pending answer. A second submission for the same
// question is rejected rather than re-graded.
func (e *Engine) SubmitAnswer() (Grade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.phase != PhaseActive {
		return Grade{}, fmt.Errorf("%w: cannot submit while %s", ErrIllegalTransition, s.phase)
	}
	if !s.pending.Valid {
		return Grade{}, ErrNoAnswerSelected
	}

	question := e.set.Question(s.currentIndex)
	correct := s.pending.Value == question.CorrectAnswer

	s.answerLog[s.currentIndex] = s.pending
	if correct {
		s.score++
	}
	s.phase = PhaseAnswered

	return Grade{
		QuestionIndex: s.currentIndex,
		QuestionID:    question.ID,
		Submitted:     s.pending,
		CorrectAnswer: question.CorrectAnswer,
		IsCorrect:     correct,
		Score:         s.score,
	}, nil
}

// Advance moves to the next question, or completes the session after the
// last one. It returns the phase entered.
func (e *Engine) Advance() (Phase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.phase != PhaseAnswered {
		return s.phase, fmt.Errorf("%w: cannot advance while %s", ErrIllegalTransition, s.phase)
	}

	if s.currentIndex+1 == e.set.Len() {
		s.phase = PhaseCompleted
		s.pending = models.Answer{}
		return s.phase, nil
	}

	s.currentIndex++
	s.pending = models.Answer{}
	s.phase = PhaseActive
	return s.phase, nil
}

// Restart discards the session and starts a fresh one on the first question.
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session = newSession(e.set.Len())
}

func (e *Engine) CurrentQuestion() (models.Question, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.phase == PhaseCompleted {
		return models.Question{}, ErrSessionCompleted
	}
	return e.set.Question(e.session.currentIndex), nil
}

// Progress returns the 1-based position of the current question and the
// total. A completed session reports (total, total).
func (e *Engine) Progress() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.currentIndex + 1, e.set.Len()
}

func (e *Engine) IsAnswered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.phase == PhaseAnswered
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.phase
}

func (e *Engine) PendingAnswer() models.Answer {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.pending
}

func (e *Engine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.session.score
}

func (e *Engine) AnswerLog() []models.Answer {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]models.Answer(nil), e.session.answerLog...)
}
