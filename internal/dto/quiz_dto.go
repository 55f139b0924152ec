package dto

import (
	"quiz-engine/internal/engine"
	"quiz-engine/internal/models"
	"quiz-engine/internal/service"
)

type StartSessionRequest struct {
	SetID string `json:"set_id"`
}

type SelectAnswerRequest struct {
	Option *string `json:"option" binding:"required"`
}

type SetListResponse struct {
	Sets []models.SetInfo `json:"sets"`
}

type SubmitAnswerResponse struct {
	Grade   engine.Grade         `json:"grade"`
	Session *service.SessionView `json:"session"`
}

type ResultListResponse struct {
	Results []*models.QuizResult `json:"results"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
