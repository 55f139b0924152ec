package handlers

import (
	"net/http"

	"quiz-engine/internal/middleware"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck reports the first unavailable dependency, or nil.
type ReadinessCheck func() error

func NewRouter(quizHandler *QuizHandler, wsHandler *WebSocketHandler, jwtSecret string, ready ReadinessCheck) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "quiz-engine",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		if ready != nil {
			if err := ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not ready",
					"reason": err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.PlayerAuth(jwtSecret))
	quizHandler.RegisterRoutes(api)

	if wsHandler != nil {
		router.GET("/ws", middleware.PlayerAuth(jwtSecret), wsHandler.HandleWebSocket)
	}

	return router
}
