package engine

import (
	"fmt"
	"math"

	"quiz-engine/internal/constants"
	"quiz-engine/internal/models"
)

type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// State is a consistent read model of the session for presenters. The
// correct answer is only revealed once the current question is answered.
type State struct {
	SetID         string          `json:"set_id"`
	Phase         Phase           `json:"phase"`
	QuestionIndex int             `json:"question_index"`
	Total         int             `json:"total"`
	Question      *QuestionView   `json:"question,omitempty"`
	PendingAnswer models.Answer   `json:"pending_answer"`
	CorrectAnswer models.Answer   `json:"correct_answer"`
	Score         int             `json:"score"`
	AnswerLog     []models.Answer `json:"answer_log"`
	LastQuestion  bool            `json:"last_question"`
}

func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	state := State{
		SetID:         e.set.ID(),
		Phase:         s.phase,
		QuestionIndex: s.currentIndex,
		Total:         e.set.Len(),
		PendingAnswer: s.pending,
		Score:         s.score,
		AnswerLog:     append([]models.Answer(nil), s.answerLog...),
		LastQuestion:  s.currentIndex+1 == e.set.Len(),
	}
	if s.phase == PhaseCompleted {
		return state
	}

	question := e.set.Question(s.currentIndex)
	state.Question = &QuestionView{
		ID:      question.ID,
		Prompt:  question.Prompt,
		Options: question.Options,
	}
	if s.phase == PhaseAnswered {
		state.CorrectAnswer = models.SomeAnswer(question.CorrectAnswer)
	}
	return state
}

type QuestionResult struct {
	Question  models.Question `json:"question"`
	Submitted models.Answer   `json:"submitted"`
	IsCorrect bool            `json:"is_correct"`
}

type Summary struct {
	Score      int              `json:"score"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Rating     string           `json:"rating"`
	Message    string           `json:"message"`
	Results    []QuestionResult `json:"results"`
}

// ScoreSummary is only available once the session is completed.
func (e *Engine) ScoreSummary() (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.phase != PhaseCompleted {
		return Summary{}, fmt.Errorf("%w: score summary requires a completed session, phase is %s", ErrIllegalTransition, s.phase)
	}

	total := e.set.Len()
	results := make([]QuestionResult, total)
	for i := range total {
		question := e.set.Question(i)
		results[i] = QuestionResult{
			Question:  question,
			Submitted: s.answerLog[i],
			IsCorrect: s.answerLog[i].Equals(question.CorrectAnswer),
		}
	}

	percentage := Percentage(s.score, total)
	rating, message := Rate(percentage)
	return Summary{
		Score:      s.score,
		Total:      total,
		Percentage: percentage,
		Rating:     rating,
		Message:    message,
		Results:    results,
	}, nil
}

// Percentage rounds half up: 1/8 is 12.5 and reports 13.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(score)/float64(total) + 0.5))
}

func Rate(percentage int) (string, string) {
	switch {
	case percentage >= 90:
		return constants.RatingOutstanding, "Outstanding! You're a quiz master!"
	case percentage >= 70:
		return constants.RatingGreat, "Great job! You really know your stuff!"
	case percentage >= 50:
		return constants.RatingGood, "Good effort! You passed the quiz."
	default:
		return constants.RatingKeepPracticing, "Keep practicing! You'll do better next time."
	}
}
