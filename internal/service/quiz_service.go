package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"quiz-engine/internal/constants"
	"quiz-engine/internal/engine"
	"quiz-engine/internal/models"
	"quiz-engine/internal/questionset"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("session belongs to another player")
)

type ResultStore interface {
	SaveResult(ctx context.Context, result *models.QuizResult) error
	ListResultsByPlayer(ctx context.Context, playerID string, limit int) ([]*models.QuizResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Observer is told about every state change, whichever transport caused it.
type Observer interface {
	SessionChanged(view *SessionView)
}

type liveSession struct {
	id       string
	playerID string
	engine   *engine.Engine
	lastSeen atomic.Int64

	// mu serializes restarts with the completion bookkeeping in Advance.
	mu        sync.Mutex
	attempt   int
	startedAt time.Time
}

func (s *liveSession) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *liveSession) idleSince(cutoff time.Time) bool {
	return s.lastSeen.Load() < cutoff.UnixNano()
}

type SessionView struct {
	ID        string       `json:"session_id"`
	PlayerID  string       `json:"player_id"`
	SetID     string       `json:"set_id"`
	SetTitle  string       `json:"set_title"`
	Attempt   int          `json:"attempt"`
	StartedAt time.Time    `json:"started_at"`
	State     engine.State `json:"state"`

	Summary *engine.Summary `json:"summary,omitempty"`
}

type QuestionProgress struct {
	Question engine.QuestionView `json:"question"`
	Current  int                 `json:"current"`
	Total    int                 `json:"total"`
	Answered bool                `json:"answered"`
}

type QuizCompletedEvent struct {
	ResultID   string    `json:"result_id,omitempty"`
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	SetID      string    `json:"set_id"`
	Attempt    int       `json:"attempt"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	Rating     string    `json:"rating"`
	FinishedAt time.Time `json:"finished_at"`
}

type QuizService struct {
	provider  questionset.Provider
	results   ResultStore
	publisher Publisher
	observer  Observer
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewQuizService accepts nil results and publisher; completion is then only
// kept in memory.
func NewQuizService(provider questionset.Provider, results ResultStore, publisher Publisher) *QuizService {
	return &QuizService{
		provider:  provider,
		results:   results,
		publisher: publisher,
		now:       time.Now,
		sessions:  make(map[string]*liveSession),
	}
}

func (s *QuizService) SetObserver(observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

func (s *QuizService) StartSession(ctx context.Context, playerID, setID string) (*SessionView, error) {
	if setID == "" {
		setID = constants.DefaultSetID
	}

	set, err := s.provider.GetSet(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question set %s: %w", setID, err)
	}

	e, err := engine.New(set)
	if err != nil {
		return nil, err
	}

	session := &liveSession{
		id:        uuid.New().String(),
		playerID:  playerID,
		engine:    e,
		attempt:   1,
		startedAt: s.now(),
	}
	session.touch(session.startedAt)

	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()

	log.Printf("Session %s started by %s on set %s", session.id, playerID, setID)
	return s.view(session), nil
}

func (s *QuizService) GetState(sessionID, playerID string) (*SessionView, error) {
	session, err := s.lookup(sessionID, playerID)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

func (s *QuizService) CurrentQuestion(sessionID, playerID string) (*QuestionProgress, error) {
	session, err := s.lookup(sessionID, playerID)
	if err != nil {
		return nil, err
	}

	question, err := session.engine.CurrentQuestion()
	if err != nil {
		return nil, err
	}
	current, total := session.engine.Progress()

	return &QuestionProgress{
		Question: engine.QuestionView{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Options: question.Options,
		},
		Current:  current,
		Total:    total,
		Answered: session.engine.IsAnswered(),
	}, nil
}

func (s *QuizService) SelectAnswer(sessionID, playerID, option string) (*SessionView, error) {
	session, err := s.lookup(sessionID, playerID)
	if err != nil {
		return nil, err
	}

	if err := session.engine.SelectAnswer(option); err != nil {
		return nil, err
	}
	return s.changed(session), nil
}

func (s *QuizService) SubmitAnswer(sessionID, playerID string) (engine.Grade, *SessionView, error) {
	session, err := s.lookup(sessionID, playerID)
	if err != nil {
		return engine.Grade{}, nil, err
	}

	grade, err := session.engine.SubmitAnswer()
	if err != nil {
		return engine.Grade{}, nil, err
	}
	return grade, s.changed(session), nil
}

// Advance records the attempt once the session completes. Recording failures
// are logged and leave the session untouched.
func (s *QuizService) Advance(ctx context.Context, sessionID, playerID string) (*SessionView, error) {
	session, err := s.lookup(sessionID, playerID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	phase, err := session.engine.Advance()
	if err != nil {
		session.mu.Unlock()
		return nil, err
	}
	view := s.viewLocked(session)
	var result *models.QuizResult
	if phase == engine.PhaseCompleted && view.Summary != nil {
		result = s.newResult(session, *view.Summary)
	}
	session.mu.Unlock()

	if result != nil {
		s.recordCompletion(ctx, result, view.Summary.Rating)
	}
	s.notify(view)
	return view, nil
}

func (s *QuizService) Restart(sessionID, playerID string) (*SessionView, error) {
	session, err := s.lookup(sessionID, playerID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.engine.Restart()
	session.attempt++
	session.startedAt = s.now()
	view := s.viewLocked(session)
	session.mu.Unlock()

	s.notify(view)
	return view, nil
}

func (s *QuizService) Summary(sessionID, playerID string) (engine.Summary, error) {
	session, err := s.lookup(sessionID, playerID)
	if err != nil {
		return engine.Summary{}, err
	}
	return session.engine.ScoreSummary()
}

func (s *QuizService) EndSession(sessionID, playerID string) error {
	if _, err := s.lookup(sessionID, playerID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	log.Printf("Session %s ended", sessionID)
	return nil
}

func (s *QuizService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle drops sessions nobody has touched for ttl and returns how many
// were removed.
func (s *QuizService) ExpireIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for id, session := range s.sessions {
		if session.idleSince(cutoff) {
			delete(s.sessions, id)
			expired++
		}
	}
	return expired
}

// RunExpiry calls ExpireIdle on a ticker until ctx is done. A non-positive
// ttl disables expiry.
func (s *QuizService) RunExpiry(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(min(ttl, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireIdle(ttl); n > 0 {
				log.Printf("Expired %d idle sessions", n)
			}
		}
	}
}

func (s *QuizService) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	return s.provider.ListSets(ctx)
}

func (s *QuizService) ListResults(ctx context.Context, playerID string, limit int) ([]*models.QuizResult, error) {
	if s.results == nil {
		return []*models.QuizResult{}, nil
	}
	if limit <= 0 || limit > constants.MaxResultsLimit {
		limit = constants.MaxResultsLimit
	}

	results, err := s.results.ListResultsByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	if results == nil {
		results = []*models.QuizResult{}
	}
	return results, nil
}

func (s *QuizService) lookup(sessionID, playerID string) (*liveSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.playerID != playerID {
		return nil, ErrForbidden
	}
	session.touch(s.now())
	return session, nil
}

func (s *QuizService) view(session *liveSession) *SessionView {
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.viewLocked(session)
}

// viewLocked expects session.mu to be held.
func (s *QuizService) viewLocked(session *liveSession) *SessionView {
	set := session.engine.QuestionSet()
	view := &SessionView{
		ID:        session.id,
		PlayerID:  session.playerID,
		SetID:     set.ID(),
		SetTitle:  set.Title(),
		Attempt:   session.attempt,
		StartedAt: session.startedAt,
		State:     session.engine.Snapshot(),
	}
	if view.State.Phase == engine.PhaseCompleted {
		if summary, err := session.engine.ScoreSummary(); err == nil {
			view.Summary = &summary
		}
	}
	return view
}

func (s *QuizService) changed(session *liveSession) *SessionView {
	view := s.view(session)
	s.notify(view)
	return view
}

func (s *QuizService) notify(view *SessionView) {
	s.mu.RLock()
	observer := s.observer
	s.mu.RUnlock()

	if observer != nil {
		observer.SessionChanged(view)
	}
}

// newResult expects session.mu to be held.
func (s *QuizService) newResult(session *liveSession, summary engine.Summary) *models.QuizResult {
	result := &models.QuizResult{
		SessionID:  session.id,
		PlayerID:   session.playerID,
		SetID:      session.engine.QuestionSet().ID(),
		Attempt:    session.attempt,
		Score:      summary.Score,
		Total:      summary.Total,
		Percentage: summary.Percentage,
		Answers:    make([]models.QuestionResult, 0, len(summary.Results)),
		StartedAt:  session.startedAt,
		FinishedAt: s.now(),
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
	return result
}

func (s *QuizService) recordCompletion(ctx context.Context, result *models.QuizResult, rating string) {
	if s.results != nil {
		if err := s.results.SaveResult(ctx, result); err != nil {
			log.Printf("Failed to save result for session %s: %v", result.SessionID, err)
		}
	}

	s.publishCompleted(ctx, result, rating)
}

func (s *QuizService) publishCompleted(ctx context.Context, result *models.QuizResult, rating string) {
	if s.publisher == nil {
		return
	}

	event := QuizCompletedEvent{
		ResultID:   result.ID,
		SessionID:  result.SessionID,
		PlayerID:   result.PlayerID,
		SetID:      result.SetID,
		Attempt:    result.Attempt,
		Score:      result.Score,
		Total:      result.Total,
		Percentage: result.Percentage,
		Rating:     rating,
		FinishedAt: result.FinishedAt,
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", constants.QueueQuizCompleted, err)
		return
	}

	if err := s.publisher.Publish(ctx, constants.QueueQuizCompleted, body); err != nil {
		log.Printf("Failed to publish %s event: %v", constants.QueueQuizCompleted, err)
	}
}
