package handlers

import (
	"log"
	"net/http"

	"quiz-engine/internal/dto"
	"quiz-engine/internal/middleware"
	"quiz-engine/internal/service"
	ws "quiz-engine/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub         *ws.Hub
	quizService *service.QuizService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler accepts any origin when allowedOrigins is empty or
// contains "*".
func NewWebSocketHandler(hub *ws.Hub, quizService *service.QuizService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		quizService: quizService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := middleware.PlayerID(c)

	sessionID := c.Query("session_id")
	if sessionID == "" {
		dto.JsonError(c, http.StatusBadRequest, "Missing session_id")
		return
	}

	if _, err := h.quizService.GetState(sessionID, playerID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, playerID, sessionID)

	if !h.hub.Enqueue(client) {
		log.Printf("Hub stopped, dropping connection for player %s", playerID)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
