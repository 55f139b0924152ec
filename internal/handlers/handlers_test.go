package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-engine/internal/models"
	"quiz-engine/internal/questionset"
	"quiz-engine/internal/service"
	ws "quiz-engine/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	service *service.QuizService
	hub     *ws.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	set, err := models.NewQuestionSet("general-knowledge", "General Knowledge", "", []models.Question{
		{ID: "q1", Prompt: "Red planet?", Options: []string{"Venus", "Mars"}, CorrectAnswer: "Mars"},
		{ID: "q2", Prompt: "Capital of Japan?", Options: []string{"Seoul", "Tokyo"}, CorrectAnswer: "Tokyo"},
	})
	if err != nil {
		t.Fatalf("NewQuestionSet failed: %v", err)
	}

	svc := service.NewQuizService(questionset.NewStaticProvider(set), nil, nil)
	hub := ws.NewHub(svc)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	router := NewRouter(NewQuizHandler(svc), NewWebSocketHandler(hub, svc, nil), "", nil)
	return &testServer{router: router, service: svc, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, player string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if player != "" {
		req.Header.Set("X-User-ID", player)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("/health status = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/ready", "", nil); w.Code != http.StatusOK {
		t.Fatalf("/ready status = %d", w.Code)
	}
}

func TestListQuestionSets(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/question-sets", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Sets []models.SetInfo `json:"sets"`
	}](t, w)
	if len(resp.Sets) != 1 || resp.Sets[0].QuestionCount != 2 {
		t.Fatalf("sets = %+v", resp.Sets)
	}
}

func TestRESTQuizFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/sessions", "alice", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body = %s", w.Code, w.Body.String())
	}
	view := decode[service.SessionView](t, w)
	base := "/api/v1/sessions/" + view.ID

	w = s.do(t, http.MethodGet, base+"/question", "alice", nil)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "correct_answer") {
		t.Fatalf("question status = %d, body = %s", w.Code, w.Body.String())
	}

	steps := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"submit without selection", http.MethodPost, "/submit", nil, http.StatusBadRequest},
		{"advance while active", http.MethodPost, "/advance", nil, http.StatusConflict},
		{"summary before completion", http.MethodGet, "/summary", nil, http.StatusConflict},
		{"invalid option", http.MethodPost, "/select", map[string]string{"option": "Pluto"}, http.StatusBadRequest},
		{"missing option", http.MethodPost, "/select", map[string]string{}, http.StatusBadRequest},
		{"select", http.MethodPost, "/select", map[string]string{"option": "Mars"}, http.StatusOK},
		{"submit", http.MethodPost, "/submit", nil, http.StatusOK},
		{"double submit", http.MethodPost, "/submit", nil, http.StatusConflict},
		{"select after submit", http.MethodPost, "/select", map[string]string{"option": "Venus"}, http.StatusConflict},
		{"advance", http.MethodPost, "/advance", nil, http.StatusOK},
		{"select second", http.MethodPost, "/select", map[string]string{"option": "Seoul"}, http.StatusOK},
		{"submit second", http.MethodPost, "/submit", nil, http.StatusOK},
		{"finish", http.MethodPost, "/advance", nil, http.StatusOK},
		{"advance after finish", http.MethodPost, "/advance", nil, http.StatusConflict},
		{"question after finish", http.MethodGet, "/question", nil, http.StatusConflict},
	}
	for _, step := range steps {
		w := s.do(t, step.method, base+step.path, "alice", step.body)
		if w.Code != step.want {
			t.Fatalf("%s: status = %d, want %d, body = %s", step.name, w.Code, step.want, w.Body.String())
		}
	}

	w = s.do(t, http.MethodGet, base+"/summary", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body = %s", w.Code, w.Body.String())
	}
	summary := decode[struct {
		Score      int    `json:"score"`
		Total      int    `json:"total"`
		Percentage int    `json:"percentage"`
		Rating     string `json:"rating"`
	}](t, w)
	if summary.Score != 1 || summary.Total != 2 || summary.Percentage != 50 || summary.Rating != "good" {
		t.Fatalf("summary = %+v", summary)
	}

	w = s.do(t, http.MethodPost, base+"/restart", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restart status = %d", w.Code)
	}
	restarted := decode[service.SessionView](t, w)
	if restarted.Attempt != 2 || restarted.State.Score != 0 {
		t.Fatalf("restarted = %+v", restarted)
	}

	if w := s.do(t, http.MethodDelete, base, "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, base, "alice", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", w.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodPost, "/api/v1/sessions", "alice", map[string]string{"set_id": "nope"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown set status = %d", w.Code)
	}

	w := s.do(t, http.MethodPost, "/api/v1/sessions", "alice", nil)
	view := decode[service.SessionView](t, w)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+view.ID, "bob", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign session status = %d", w.Code)
	}
	errResp := decode[struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}](t, w)
	if errResp.Error != http.StatusText(http.StatusForbidden) || errResp.Code != "forbidden" || errResp.Message == "" {
		t.Fatalf("error envelope = %+v", errResp)
	}

	if w := s.do(t, http.MethodGet, "/api/v1/results?limit=abc", "alice", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/results", "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("results status = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/results?limit=100000000", "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("large limit status = %d", w.Code)
	}
}

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) wsEnvelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg wsEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestWebSocketFlow(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	view, err := s.service.StartSession(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session_id=" + view.ID
	header := http.Header{}
	header.Set("X-User-ID", "alice")

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntil(t, conn, "state")

	send := func(msgType string, payload any) {
		t.Helper()
		if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
			t.Fatalf("write %s: %v", msgType, err)
		}
	}

	send("ping", nil)
	readUntil(t, conn, "pong")

	send("select_answer", map[string]string{"option": "Pluto"})
	failure := readUntil(t, conn, "error")
	var errPayload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(failure.Payload, &errPayload); err != nil || errPayload.Code != "invalid_option" {
		t.Fatalf("error payload = %s", failure.Payload)
	}

	send("select_answer", map[string]string{"option": "Mars"})
	send("submit_answer", nil)
	result := readUntil(t, conn, "answer_result")
	var grade struct {
		IsCorrect    bool `json:"is_correct"`
		LastQuestion bool `json:"last_question"`
	}
	if err := json.Unmarshal(result.Payload, &grade); err != nil {
		t.Fatalf("decode answer_result: %v", err)
	}
	if !grade.IsCorrect || grade.LastQuestion {
		t.Fatalf("answer_result = %+v", grade)
	}

	send("advance", nil)
	send("select_answer", map[string]string{"option": "Tokyo"})
	send("submit_answer", nil)
	readUntil(t, conn, "answer_result")

	// completion through REST still reaches the socket
	if w := s.do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/advance", "alice", nil); w.Code != http.StatusOK {
		t.Fatalf("advance status = %d", w.Code)
	}
	finished := readUntil(t, conn, "quiz_finished")
	var payload struct {
		Attempt int `json:"attempt"`
		Summary struct {
			Score      int `json:"score"`
			Percentage int `json:"percentage"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(finished.Payload, &payload); err != nil {
		t.Fatalf("decode quiz_finished: %v", err)
	}
	if payload.Summary.Score != 2 || payload.Summary.Percentage != 100 || payload.Attempt != 1 {
		t.Fatalf("quiz_finished = %+v", payload)
	}
}

func TestWebSocketRejectsForeignSession(t *testing.T) {
	s := newTestServer(t)
	view, _ := s.service.StartSession(context.Background(), "alice", "")

	w := s.do(t, http.MethodGet, "/ws?session_id="+view.ID, "bob", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/ws", "alice", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing session_id status = %d", w.Code)
	}
}
