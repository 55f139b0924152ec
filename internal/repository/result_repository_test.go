package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quiz-engine/internal/models"
	"quiz-engine/pkg/database"
)

func newTestRepository(t *testing.T) *ResultRepository {
	t.Helper()

	client, err := database.NewSQLiteClient(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("NewSQLiteClient failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return NewResultRepository(client)
}

func sampleResult(playerID string, finishedAt time.Time) *models.QuizResult {
	return &models.QuizResult{
		SessionID:  "session-1",
		PlayerID:   playerID,
		SetID:      "general-knowledge",
		Attempt:    1,
		Score:      1,
		Total:      2,
		Percentage: 50,
		Answers: []models.QuestionResult{
			{QuestionID: "q1", Prompt: "Red planet?", Submitted: models.SomeAnswer("Mars"), CorrectAnswer: "Mars", IsCorrect: true},
			{QuestionID: "q2", Prompt: "Capital of Japan?", CorrectAnswer: "Tokyo"},
		},
		StartedAt:  finishedAt.Add(-time.Minute),
		FinishedAt: finishedAt,
	}
}

func TestSaveAndGetResult(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	result := sampleResult("alice", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err := repo.SaveResult(ctx, result); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if result.ID == "" {
		t.Fatal("SaveResult did not assign an id")
	}

	got, err := repo.GetResult(ctx, result.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if got.PlayerID != "alice" || got.Score != 1 || got.Percentage != 50 {
		t.Fatalf("GetResult = %+v", got)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("answers = %+v, want 2 entries", got.Answers)
	}
	if !got.Answers[0].Submitted.Equals("Mars") || got.Answers[1].Submitted.Valid {
		t.Fatalf("answers did not round-trip: %+v", got.Answers)
	}
	if !got.FinishedAt.Equal(result.FinishedAt) {
		t.Fatalf("FinishedAt = %v, want %v", got.FinishedAt, result.FinishedAt)
	}

	if _, err := repo.GetResult(ctx, "missing"); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("GetResult(missing) error = %v, want ErrResultNotFound", err)
	}
}

func TestListResultsByPlayer(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result := sampleResult("bob", base.Add(time.Duration(i)*time.Hour))
		result.Attempt = i + 1
		if err := repo.SaveResult(ctx, result); err != nil {
			t.Fatalf("SaveResult failed: %v", err)
		}
	}
	if err := repo.SaveResult(ctx, sampleResult("carol", base)); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	results, err := repo.ListResultsByPlayer(ctx, "bob", 2)
	if err != nil {
		t.Fatalf("ListResultsByPlayer failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Attempt != 3 || results[1].Attempt != 2 {
		t.Fatalf("results not newest first: attempts %d, %d", results[0].Attempt, results[1].Attempt)
	}

	none, err := repo.ListResultsByPlayer(ctx, "dave", 0)
	if err != nil {
		t.Fatalf("ListResultsByPlayer failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("got %d results for unknown player", len(none))
	}
}
