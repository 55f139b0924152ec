package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quiz-engine/internal/constants"
	"quiz-engine/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type PlayerClaims struct {
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

// PlayerAuth resolves the player id. With a secret configured a valid HS256
// bearer token is required; otherwise the X-User-ID header is trusted and
// anonymous callers play as guest.
func PlayerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			playerID := c.GetHeader("X-User-ID")
			if playerID == "" {
				playerID = constants.GuestPlayerID
			}
			c.Set(constants.ContextPlayerID, playerID)
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			dto.JsonError(c, http.StatusUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		claims, err := ParsePlayerToken(token, secret)
		if err != nil {
			dto.JsonError(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		c.Set(constants.ContextPlayerID, claims.PlayerID)
		c.Next()
	}
}

// bearerToken also accepts ?token= since browsers cannot set headers on a
// websocket handshake.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func ParsePlayerToken(tokenString, secret string) (*PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PlayerClaims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*PlayerClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.PlayerID == "" {
		return nil, errors.New("token has no player_id")
	}
	return claims, nil
}

func PlayerID(c *gin.Context) string {
	return c.GetString(constants.ContextPlayerID)
}
