package gateway

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"meetai/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionAuthMiddleware validates the session and injects user context.
// API clients get a 401; browser navigations are redirected to /sign-in.
func SessionAuthMiddleware(sessionMgr session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie("session_id")
		if err != nil {
			rejectUnauthenticated(c, "unauthorized: no session cookie")
			return
		}

		sess, err := sessionMgr.Get(c.Request.Context(), sessionID)
		if err != nil {
			slog.Warn("Invalid session",
				"error", err.Error(),
				"request_id", c.GetString("request_id"),
			)
			rejectUnauthenticated(c, "unauthorized: invalid session")
			return
		}

		// Expiration is enforced by Get, re-check before trusting the record
		if time.Now().After(sess.ExpiresAt) {
			rejectUnauthenticated(c, "unauthorized: session expired")
			return
		}

		// Inject user context for downstream services
		c.Set("user_id", sess.UserID)
		c.Set("email", sess.Email)

		// Add headers for proxied requests
		c.Request.Header.Set("X-User-ID", sess.UserID)
		c.Request.Header.Set("X-User-Email", sess.Email)

		c.Next()
	}
}

// RedirectIfAuthenticated bounces signed-in users away from the auth pages
func RedirectIfAuthenticated(sessionMgr session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie("session_id")
		if err != nil {
			c.Next()
			return
		}

		sess, err := sessionMgr.Get(c.Request.Context(), sessionID)
		if err != nil || time.Now().After(sess.ExpiresAt) {
			c.Next()
			return
		}

		c.Redirect(http.StatusFound, "/")
		c.Abort()
	}
}

// rejectUnauthenticated answers 401 for API clients and redirects page loads
func rejectUnauthenticated(c *gin.Context, message string) {
	if wantsHTML(c) {
		c.Redirect(http.StatusFound, "/sign-in")
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}

// wantsHTML reports whether the request is a browser page navigation
func wantsHTML(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return false
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html")
}

// CORSMiddleware handles CORS for the gateway
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware generates a unique request ID for distributed tracing
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()

		c.Set("request_id", requestID)

		// Add to response headers for client correlation
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()
	}
}

// LoggingMiddleware logs all requests passing through the gateway with structured JSON
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Wrap the response writer to capture response size
		rw := newResponseWriter(c.Writer)
		c.Writer = rw

		c.Next()

		latency := time.Since(start)
		latencyMs := float64(latency.Milliseconds())

		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		method := c.Request.Method
		// Use Gin's writer Status() which handles aborted requests correctly
		status := c.Writer.Status()
		responseSize := rw.Size()
		clientIP := c.ClientIP()
		userAgent := c.Request.UserAgent()
		requestID := c.GetString("request_id")

		attrs := []any{
			"request_id", requestID,
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", latencyMs,
			"client_ip", clientIP,
			"user_agent", userAgent,
			"response_size", responseSize,
		}

		if query != "" {
			attrs = append(attrs, "query", query)
		}

		if userID, exists := c.Get("user_id"); exists {
			attrs = append(attrs, "user_id", userID)
		}
		if email, exists := c.Get("email"); exists {
			attrs = append(attrs, "email", email)
		}

		if upstreamService, exists := c.Get("upstream_service"); exists {
			attrs = append(attrs, "upstream_service", upstreamService)
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.Error("Request failed - server error", attrs...)
		case status >= 400:
			slog.Warn("Request failed - client error", attrs...)
		default:
			slog.Info("Request completed", attrs...)
		}
	}
}
