package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"neuroforge/src/app/http/response"
)

// PlayerHeader carries the caller's player id. Authentication happens upstream;
// the header is trusted as-is.
const PlayerHeader = "X-User-Id"

// PlayerIDKey is the context key for storing the player id.
const PlayerIDKey = "player_id"

const maxPlayerIDLength = 128

// Player reads the optional X-User-Id header into the context. Requests without
// it are treated as guests.
func Player() gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := strings.TrimSpace(c.GetHeader(PlayerHeader))
		if len(playerID) > maxPlayerIDLength {
			response.BadRequest(c, "invalid X-User-Id", GetRequestID(c))
			c.Abort()
			return
		}
		c.Set(PlayerIDKey, playerID)
		c.Next()
	}
}

// RequirePlayer rejects guest requests with 401.
func RequirePlayer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetPlayerID(c) == "" {
			response.Unauthorized(c, "missing X-User-Id header", GetRequestID(c))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPlayerID retrieves the player id from the Gin context.
// Returns empty string for guests.
func GetPlayerID(c *gin.Context) string {
	if id, exists := c.Get(PlayerIDKey); exists {
		if playerID, ok := id.(string); ok {
			return playerID
		}
	}
	return ""
}
