package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"neuroforge/src/app/http/response"
)

// Recovery turns a handler panic into a 500 envelope and logs it with the stack,
// the player and the session the request was addressed to. Register it first.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := GetRequestID(c)

			attrs := []any{
				"request_id", requestID,
				"error", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			}
			if player := GetPlayerID(c); player != "" {
				attrs = append(attrs, "player_id", player)
			}
			if sessionID := c.Param("session_id"); sessionID != "" {
				attrs = append(attrs, "session_id", sessionID)
			}
			log.Error("panic recovered", attrs...)

			response.InternalError(c, requestID)
		}()

		c.Next()
	}
}
