package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quiz-engine/internal/models"
	"quiz-engine/internal/questionset"
	"quiz-engine/internal/service"
)

func newTestHub(t *testing.T) (*Hub, *service.QuizService) {
	t.Helper()

	set, err := models.NewQuestionSet("general-knowledge", "General Knowledge", "", []models.Question{
		{ID: "q1", Prompt: "Red planet?", Options: []string{"Venus", "Mars"}, CorrectAnswer: "Mars"},
	})
	if err != nil {
		t.Fatalf("NewQuestionSet failed: %v", err)
	}
	svc := service.NewQuizService(questionset.NewStaticProvider(set), nil, nil)
	return NewHub(svc), svc
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()

	select {
	case data, ok := <-client.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var msg struct {
			Type MessageType     `json:"type"`
			Raw  json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		return Message{Type: msg.Type, Payload: msg.Raw}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHubRegistersAndBroadcasts(t *testing.T) {
	hub, svc := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	view, err := svc.StartSession(ctx, "alice", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	client := NewClient(hub, nil, "alice", view.ID)
	if !hub.Enqueue(client) {
		t.Fatal("Enqueue on a running hub returned false")
	}
	if msg := receive(t, client); msg.Type != MessageTypeState {
		t.Fatalf("first message = %s, want state", msg.Type)
	}

	if _, err := svc.SelectAnswer(view.ID, "alice", "Mars"); err != nil {
		t.Fatalf("SelectAnswer failed: %v", err)
	}
	if msg := receive(t, client); msg.Type != MessageTypeState {
		t.Fatalf("broadcast = %s, want state", msg.Type)
	}
}

func TestHubStopsAcceptingAfterShutdown(t *testing.T) {
	hub, svc := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	view, _ := svc.StartSession(context.Background(), "alice", "")
	registered := NewClient(hub, nil, "alice", view.ID)
	if !hub.Enqueue(registered) {
		t.Fatal("Enqueue on a running hub returned false")
	}
	receive(t, registered)

	cancel()
	<-stopped

	select {
	case <-hub.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}
	if _, ok := <-registered.Send; ok {
		t.Fatal("registered client send channel still open")
	}

	late := NewClient(hub, nil, "alice", view.ID)
	result := make(chan bool, 1)
	go func() { result <- hub.Enqueue(late) }()

	select {
	case ok := <-result:
		if ok {
			t.Fatal("Enqueue after shutdown returned true")
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked after shutdown")
	}
}
