package questionset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-engine/internal/models"
	"quiz-engine/pkg/database"
)

// SQLProvider reads sets from the question_sets and questions tables. It
// works against both Postgres and SQLite clients.
type SQLProvider struct {
	client *database.Client
}

func NewSQLProvider(client *database.Client) *SQLProvider {
	return &SQLProvider{client: client}
}

func (p *SQLProvider) GetSet(ctx context.Context, id string) (*models.QuestionSet, error) {
	db := p.client.GetDB()

	var title, description string
	query := p.client.Rebind(`SELECT title, description FROM question_sets WHERE id = ?`)
	err := db.QueryRowContext(ctx, query, id).Scan(&title, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question set: %w", err)
	}

	query = p.client.Rebind(`
		SELECT id, prompt, options, correct_answer
		FROM questions
		WHERE set_id = ?
		ORDER BY order_index
	`)
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.Prompt, &options, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("%w: question %s options: %v", models.ErrMalformedQuestionSet, q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return models.NewQuestionSet(id, title, description, questions)
}

func (p *SQLProvider) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	query := `
		SELECT s.id, s.title, s.description, COUNT(q.id)
		FROM question_sets s
		LEFT JOIN questions q ON q.set_id = s.id
		GROUP BY s.id, s.title, s.description
		ORDER BY s.id
	`

	rows, err := p.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list question sets: %w", err)
	}
	defer rows.Close()

	var infos []models.SetInfo
	for rows.Next() {
		var info models.SetInfo
		if err := rows.Scan(&info.ID, &info.Title, &info.Description, &info.QuestionCount); err != nil {
			return nil, fmt.Errorf("failed to scan question set: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// SaveSet replaces a stored set and its questions in one transaction.
func (p *SQLProvider) SaveSet(ctx context.Context, set *models.QuestionSet) error {
	tx, err := p.client.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, p.client.Rebind(`DELETE FROM questions WHERE set_id = ?`), set.ID()); err != nil {
		return fmt.Errorf("failed to clear questions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, p.client.Rebind(`DELETE FROM question_sets WHERE id = ?`), set.ID()); err != nil {
		return fmt.Errorf("failed to clear question set: %w", err)
	}

	info := set.Info()
	_, err = tx.ExecContext(ctx,
		p.client.Rebind(`INSERT INTO question_sets (id, title, description) VALUES (?, ?, ?)`),
		info.ID, info.Title, info.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to insert question set: %w", err)
	}

	insertQuestion := p.client.Rebind(`
		INSERT INTO questions (set_id, id, prompt, options, correct_answer, order_index)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for i, q := range set.Questions() {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertQuestion, set.ID(), q.ID, q.Prompt, string(options), q.CorrectAnswer, i); err != nil {
			return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
		}
	}

	return tx.Commit()
}
