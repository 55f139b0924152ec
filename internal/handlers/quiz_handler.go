package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"quiz-engine/internal/dto"
	"quiz-engine/internal/middleware"
	"quiz-engine/internal/models"
	"quiz-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService *service.QuizService
}

func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
	}
}

func (h *QuizHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/question-sets", h.ListSets)
	r.GET("/results", h.ListResults)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.StartSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.EndSession)
		sessions.GET("/:id/question", h.CurrentQuestion)
		sessions.POST("/:id/select", h.SelectAnswer)
		sessions.POST("/:id/submit", h.SubmitAnswer)
		sessions.POST("/:id/advance", h.Advance)
		sessions.POST("/:id/restart", h.Restart)
		sessions.GET("/:id/summary", h.Summary)
	}
}

func (h *QuizHandler) ListSets(c *gin.Context) {
	sets, err := h.quizService.ListSets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if sets == nil {
		sets = []models.SetInfo{}
	}
	c.JSON(http.StatusOK, dto.SetListResponse{Sets: sets})
}

func (h *QuizHandler) StartSession(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		dto.JsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.quizService.StartSession(c.Request.Context(), middleware.PlayerID(c), req.SetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *QuizHandler) GetSession(c *gin.Context) {
	view, err := h.quizService.GetState(c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *QuizHandler) CurrentQuestion(c *gin.Context) {
	progress, err := h.quizService.CurrentQuestion(c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *QuizHandler) SelectAnswer(c *gin.Context) {
	var req dto.SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.quizService.SelectAnswer(c.Param("id"), middleware.PlayerID(c), *req.Option)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	grade, view, err := h.quizService.SubmitAnswer(c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SubmitAnswerResponse{Grade: grade, Session: view})
}

func (h *QuizHandler) Advance(c *gin.Context) {
	view, err := h.quizService.Advance(c.Request.Context(), c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *QuizHandler) Restart(c *gin.Context) {
	view, err := h.quizService.Restart(c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *QuizHandler) Summary(c *gin.Context) {
	summary, err := h.quizService.Summary(c.Param("id"), middleware.PlayerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *QuizHandler) EndSession(c *gin.Context) {
	if err := h.quizService.EndSession(c.Param("id"), middleware.PlayerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Session ended"})
}

func (h *QuizHandler) ListResults(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		dto.JsonError(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	results, err := h.quizService.ListResults(c.Request.Context(), middleware.PlayerID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ResultListResponse{Results: results})
}

func respondError(c *gin.Context, err error) {
	status, code := dto.Classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
		dto.JsonErrorCode(c, status, code)
		return
	}
	dto.JsonErrorCode(c, status, code, err.Error())
}
