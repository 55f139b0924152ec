package dto

import (
	"errors"
	"net/http"

	"quiz-engine/internal/engine"
	"quiz-engine/internal/models"
	"quiz-engine/internal/questionset"
	"quiz-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// ErrorResponse carries a stable machine-readable Code next to the HTTP
// status text so clients need not parse Message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	CodeInvalidOption        = "invalid_option"
	CodeNoAnswerSelected     = "no_answer_selected"
	CodeIllegalTransition    = "illegal_transition"
	CodeSessionCompleted     = "session_completed"
	CodeMalformedQuestionSet = "malformed_question_set"
	CodeSessionNotFound      = "session_not_found"
	CodeSetNotFound          = "question_set_not_found"
	CodeForbidden            = "forbidden"
	CodeInternal             = "internal"
)

// Classify maps domain errors onto an HTTP status and error code.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidOption):
		return http.StatusBadRequest, CodeInvalidOption
	case errors.Is(err, engine.ErrNoAnswerSelected):
		return http.StatusBadRequest, CodeNoAnswerSelected
	case errors.Is(err, engine.ErrIllegalTransition):
		return http.StatusConflict, CodeIllegalTransition
	case errors.Is(err, engine.ErrSessionCompleted):
		return http.StatusConflict, CodeSessionCompleted
	case errors.Is(err, models.ErrMalformedQuestionSet):
		return http.StatusUnprocessableEntity, CodeMalformedQuestionSet
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, questionset.ErrSetNotFound):
		return http.StatusNotFound, CodeSetNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func JsonError(c *gin.Context, status int, message ...string) {
	JsonErrorCode(c, status, "", message...)
}

func JsonErrorCode(c *gin.Context, status int, code string, message ...string) {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}

	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: msg,
	})
}
