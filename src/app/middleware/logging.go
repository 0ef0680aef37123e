package middleware

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"neuroforge/src/infra/logger"
)

// maxLoggedBody caps how much of an error response body is logged.
const maxLoggedBody = 512

// Logging emits one structured line per request. Error responses also carry
// their body.
func Logging(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Capture response body
		rec := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = rec

		// Process request
		c.Next()

		status := c.Writer.Status()
		reqLog := logger.WithRequestID(log, GetRequestID(c))
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if player := GetPlayerID(c); player != "" {
			attrs = append(attrs, "player_id", player)
		}
		if status >= 400 {
			attrs = append(attrs, "response", rec.snippet())
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		// Choose log level based on status code
		switch {
		case status >= 500:
			reqLog.Error("http request", attrs...)
		case status >= 400:
			reqLog.Warn("http request", attrs...)
		default:
			reqLog.Info("http request", attrs...)
		}
	}
}

// responseCapture captures the start of the response body while delegating to the
// original writer.
type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.capture(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) WriteString(s string) (int, error) {
	r.capture([]byte(s))
	return r.ResponseWriter.WriteString(s)
}

func (r *responseCapture) capture(b []byte) {
	if room := maxLoggedBody - r.body.Len(); room > 0 {
		if len(b) > room {
			b = b[:room]
		}
		r.body.Write(b)
	}
}

func (r *responseCapture) snippet() string {
	return r.body.String()
}
