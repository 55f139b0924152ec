package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-engine/internal/models"
	"quiz-engine/pkg/database"

	"github.com/google/uuid"
)

var ErrResultNotFound = errors.New("result not found")

type ResultRepository struct {
	client *database.Client
}

func NewResultRepository(client *database.Client) *ResultRepository {
	return &ResultRepository{client: client}
}

// SaveResult assigns an id when the result has none.
func (r *ResultRepository) SaveResult(ctx context.Context, result *models.QuizResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}

	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	query := r.client.Rebind(`
		INSERT INTO quiz_results (id, session_id, player_id, set_id, attempt, score, total, percentage, answers, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.client.GetDB().ExecContext(ctx, query,
		result.ID,
		result.SessionID,
		result.PlayerID,
		result.SetID,
		result.Attempt,
		result.Score,
		result.Total,
		result.Percentage,
		string(answers),
		result.StartedAt.UTC(),
		result.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetResult(ctx context.Context, id string) (*models.QuizResult, error) {
	query := r.client.Rebind(`
		SELECT id, session_id, player_id, set_id, attempt, score, total, percentage, answers, started_at, finished_at
		FROM quiz_results
		WHERE id = ?
	`)

	result, err := scanResult(r.client.GetDB().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListResultsByPlayer returns the newest results first.
func (r *ResultRepository) ListResultsByPlayer(ctx context.Context, playerID string, limit int) ([]*models.QuizResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := r.client.Rebind(`
		SELECT id, session_id, player_id, set_id, attempt, score, total, percentage, answers, started_at, finished_at
		FROM quiz_results
		WHERE player_id = ?
		ORDER BY finished_at DESC
		LIMIT ?
	`)

	rows, err := r.client.GetDB().QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*models.QuizResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*models.QuizResult, error) {
	result := &models.QuizResult{}
	var answers []byte
	err := row.Scan(
		&result.ID,
		&result.SessionID,
		&result.PlayerID,
		&result.SetID,
		&result.Attempt,
		&result.Score,
		&result.Total,
		&result.Percentage,
		&answers,
		&result.StartedAt,
		&result.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(answers, &result.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	return result, nil
}
