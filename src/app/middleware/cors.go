package middleware

import "github.com/gin-gonic/gin"

// CORS adds CORS headers for allowedOrigin and short-circuits OPTIONS preflight
// requests. "*" allows any origin.
func CORS(allowedOrigin string) gin.HandlerFunc {
	const (
		allowedMethods = "GET, POST, DELETE, OPTIONS"
		allowedHeaders = "Content-Type, X-User-Id, X-Request-ID"
		maxAge         = "600"
	)
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		c.Header("Access-Control-Expose-Headers", RequestIDHeader)
		c.Header("Access-Control-Max-Age", maxAge)

		// For preflight requests, return immediately.
		if c.Request.Method == "OPTIONS" {
			c.Status(204)
			c.Abort()
			return
		}

		c.Next()
	}
}
