package websocket

import (
	"encoding/json"

	"quiz-engine/internal/engine"
)

type MessageType string

const (
	// Client -> Server
	MessageTypeSelectAnswer MessageType = "select_answer"
	MessageTypeSubmitAnswer MessageType = "submit_answer"
	MessageTypeAdvance      MessageType = "advance"
	MessageTypeRestart      MessageType = "restart"
	MessageTypePing         MessageType = "ping"

	// Server -> Client
	MessageTypeState        MessageType = "state"
	MessageTypeAnswerResult MessageType = "answer_result"
	MessageTypeQuizFinished MessageType = "quiz_finished"
	MessageTypeError        MessageType = "error"
	MessageTypePong         MessageType = "pong"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// IncomingMessage keeps the payload raw until the type is known.
type IncomingMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SelectAnswerPayload struct {
	Option *string `json:"option"`
}

type AnswerResultPayload struct {
	engine.Grade
	LastQuestion bool `json:"last_question"`
}

type QuizFinishedPayload struct {
	Attempt int            `json:"attempt"`
	Summary engine.Summary `json:"summary"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
