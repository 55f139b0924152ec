package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"quiz-engine/internal/engine"
	"quiz-engine/internal/service"
)

type ClientMessage struct {
	Client  *Client
	Message IncomingMessage
}

// Hub fans session state out to every socket watching that session. It is
// registered as the service observer, so REST calls are broadcast as well.
type Hub struct {
	clients       map[string]map[*Client]bool
	Register      chan *Client
	Unregister    chan *Client
	HandleMessage chan *ClientMessage

	done     chan struct{}
	stopOnce sync.Once

	quizService *service.QuizService

	mu sync.RWMutex
}

func NewHub(quizService *service.QuizService) *Hub {
	h := &Hub{
		clients:       make(map[string]map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		HandleMessage: make(chan *ClientMessage),
		done:          make(chan struct{}),
		quizService:   quizService,
	}
	quizService.SetObserver(h)
	return h
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case clientMsg := <-h.HandleMessage:
			h.handleClientMessage(clientMsg)
		}
	}
}

// Done is closed once Run has returned; sends on the hub channels must give up
// after that.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Enqueue hands a new client to Run and reports false if the hub has stopped.
func (h *Hub) Enqueue(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) SessionChanged(view *service.SessionView) {
	h.broadcastToSession(view.ID, MessageTypeState, view)
	if view.State.Phase != engine.PhaseCompleted || view.Summary == nil {
		return
	}

	h.broadcastToSession(view.ID, MessageTypeQuizFinished, QuizFinishedPayload{
		Attempt: view.Attempt,
		Summary: *view.Summary,
	})
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.SessionID] == nil {
		h.clients[client.SessionID] = make(map[*Client]bool)
	}
	h.clients[client.SessionID][client] = true
	h.mu.Unlock()

	log.Printf("Client registered: player=%s, session=%s", client.PlayerID, client.SessionID)

	view, err := h.quizService.GetState(client.SessionID, client.PlayerID)
	if err != nil {
		client.SendFailure(err)
		return
	}
	client.SendMessage(MessageTypeState, view)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.SessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)

			if len(clients) == 0 {
				delete(h.clients, client.SessionID)
			}

			log.Printf("Client unregistered: player=%s, session=%s", client.PlayerID, client.SessionID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, clients := range h.clients {
		for client := range clients {
			close(client.Send)
		}
		delete(h.clients, sessionID)
	}
}

func (h *Hub) handleClientMessage(clientMsg *ClientMessage) {
	client := clientMsg.Client
	msg := clientMsg.Message

	switch msg.Type {
	case MessageTypeSelectAnswer:
		h.handleSelect(client, msg.Payload)

	case MessageTypeSubmitAnswer:
		h.handleSubmit(client)

	case MessageTypeAdvance:
		h.handleAdvance(client)

	case MessageTypeRestart:
		if _, err := h.quizService.Restart(client.SessionID, client.PlayerID); err != nil {
			client.SendFailure(err)
		}

	case MessageTypePing:
		client.SendMessage(MessageTypePong, nil)

	default:
		client.SendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Hub) handleSelect(client *Client, raw json.RawMessage) {
	var payload SelectAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Option == nil {
		client.SendError("Invalid select_answer payload")
		return
	}

	if _, err := h.quizService.SelectAnswer(client.SessionID, client.PlayerID, *payload.Option); err != nil {
		client.SendFailure(err)
	}
}

func (h *Hub) handleSubmit(client *Client) {
	grade, view, err := h.quizService.SubmitAnswer(client.SessionID, client.PlayerID)
	if err != nil {
		client.SendFailure(err)
		return
	}

	client.SendMessage(MessageTypeAnswerResult, AnswerResultPayload{
		Grade:        grade,
		LastQuestion: view.State.LastQuestion,
	})
}

func (h *Hub) handleAdvance(client *Client) {
	if _, err := h.quizService.Advance(context.Background(), client.SessionID, client.PlayerID); err != nil {
		client.SendFailure(err)
	}
}

func (h *Hub) broadcastToSession(sessionID string, msgType MessageType, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		client.SendMessage(msgType, payload)
	}
}

func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
