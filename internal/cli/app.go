// Package cli is a terminal presenter for a single quiz session.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"quiz-engine/internal/engine"
	"quiz-engine/internal/models"

	"github.com/google/uuid"
)

const defaultMaxAttempts = 3

var ErrTooManyInvalidAnswers = errors.New("too many invalid answers")

type ResultStore interface {
	SaveResult(ctx context.Context, result *models.QuizResult) error
}

type Options struct {
	PlayerID    string
	MaxAttempts int
	// Results is optional; completed attempts are saved to it when set.
	Results ResultStore
}

type app struct {
	engine    *engine.Engine
	reader    *bufio.Reader
	out       io.Writer
	opts      Options
	sessionID string
	attempt   int
	startedAt time.Time
}

// Run plays set until the player declines a restart or input ends.
func Run(ctx context.Context, set *models.QuestionSet, in io.Reader, out io.Writer, opts Options) error {
	e, err := engine.New(set)
	if err != nil {
		return err
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.PlayerID == "" {
		opts.PlayerID = "local"
	}

	a := &app{
		engine:    e,
		reader:    bufio.NewReader(in),
		out:       out,
		opts:      opts,
		sessionID: uuid.New().String(),
		attempt:   1,
		startedAt: time.Now(),
	}
	return a.run(ctx)
}

func (a *app) run(ctx context.Context) error {
	fmt.Fprintf(a.out, "%s\n", a.engine.QuestionSet().Title())

	for {
		for a.engine.Phase() != engine.PhaseCompleted {
			if err := ctx.Err(); err != nil {
				return err
			}
			done, err := a.playQuestion()
			if err != nil || done {
				return err
			}
		}

		summary, err := a.engine.ScoreSummary()
		if err != nil {
			return err
		}
		a.printSummary(summary)
		a.saveResult(ctx, summary)

		fmt.Fprint(a.out, "\nPlay again? [y/N] ")
		line, _ := a.reader.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(line), "y") {
			fmt.Fprintln(a.out)
			return nil
		}

		a.engine.Restart()
		a.attempt++
		a.startedAt = time.Now()
	}
}

// playQuestion reports done when input ended before an answer was given.
func (a *app) playQuestion() (bool, error) {
	question, err := a.engine.CurrentQuestion()
	if err != nil {
		return false, err
	}
	current, total := a.engine.Progress()
	printQuestion(a.out, current, total, question)

	choice, err := a.getAnswer(len(question.Options))
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(a.out, "\nGoodbye.")
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if err := a.engine.SelectAnswer(question.Options[choice]); err != nil {
		return false, err
	}
	grade, err := a.engine.SubmitAnswer()
	if err != nil {
		return false, err
	}

	fmt.Fprintln(a.out)
	if grade.IsCorrect {
		fmt.Fprintln(a.out, "Correct!")
	} else {
		fmt.Fprintf(a.out, "Wrong. Correct answer was %s\n", grade.CorrectAnswer)
	}

	if _, err := a.engine.Advance(); err != nil {
		return false, err
	}
	return false, nil
}

func printQuestion(out io.Writer, current, total int, question models.Question) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Question %d of %d\n", current, total)
	fmt.Fprintf(out, "%s\n\n", question.Prompt)
	for i, option := range question.Options {
		fmt.Fprintf(out, "%s. %s\n", optionLabel(i), option)
	}
	fmt.Fprintln(out)
}

// optionLabel letters the first 26 options and numbers the rest.
func optionLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}

func parseChoice(input string, optionCount int) (int, bool) {
	input = strings.ToUpper(strings.TrimSpace(input))
	if len(input) == 1 && input[0] >= 'A' && input[0] <= 'Z' {
		idx := int(input[0] - 'A')
		return idx, idx < optionCount
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= optionCount {
		return n - 1, true
	}
	return -1, false
}

func invalidInputHint(optionCount int) string {
	if optionCount <= 26 {
		return fmt.Sprintf("Please enter a letter A-%s.", optionLabel(optionCount-1))
	}
	return fmt.Sprintf("Please enter a letter A-Z or a number 1-%d.", optionCount)
}

func (a *app) getAnswer(optionCount int) (int, error) {
	hint := invalidInputHint(optionCount)

	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		fmt.Fprint(a.out, "Your answer: ")
		line, err := a.reader.ReadString('\n')
		if err != nil && line == "" {
			return -1, io.EOF
		}

		if idx, ok := parseChoice(line, optionCount); ok {
			return idx, nil
		}

		if attempt < a.opts.MaxAttempts {
			fmt.Fprintf(a.out, "\nInvalid input. %s\n", hint)
		}
	}

	return -1, ErrTooManyInvalidAnswers
}

func (a *app) printSummary(summary engine.Summary) {
	fmt.Fprintf(a.out, "\nQuiz complete!\n")
	fmt.Fprintf(a.out, "Final score: %d/%d (%d%%)\n", summary.Score, summary.Total, summary.Percentage)
	fmt.Fprintf(a.out, "%s\n\n", summary.Message)

	fmt.Fprintln(a.out, "Review:")
	for i, r := range summary.Results {
		mark := "x"
		if r.IsCorrect {
			mark = "+"
		}
		submitted := "(no answer)"
		if r.Submitted.Valid {
			submitted = r.Submitted.Value
		}
		fmt.Fprintf(a.out, " %s %d. %s\n", mark, i+1, r.Question.Prompt)
		fmt.Fprintf(a.out, "     your answer: %s\n", submitted)
		if !r.IsCorrect {
			fmt.Fprintf(a.out, "     correct answer: %s\n", r.Question.CorrectAnswer)
		}
	}
}

func (a *app) saveResult(ctx context.Context, summary engine.Summary) {
	if a.opts.Results == nil {
		return
	}

	result := &models.QuizResult{
		SessionID:  a.sessionID,
		PlayerID:   a.opts.PlayerID,
		SetID:      a.engine.QuestionSet().ID(),
		Attempt:    a.attempt,
		Score:      summary.Score,
		Total:      summary.Total,
		Percentage: summary.Percentage,
		StartedAt:  a.startedAt,
		FinishedAt: time.Now(),
	}
	for _, r := range summary.Results {
		result.Answers = append(result.Answers, models.QuestionResult{
			QuestionID:    r.Question.ID,
			Prompt:        r.Question.Prompt,
			Submitted:     r.Submitted,
			CorrectAnswer: r.Question.CorrectAnswer,
			IsCorrect:     r.IsCorrect,
		})
	}

	if err := a.opts.Results.SaveResult(ctx, result); err != nil {
		log.Printf("Failed to save result: %v", err)
	}
}
