// Package gateway implements the API Gateway service logic.
// The gateway handles session validation, service discovery, and request routing
// to backend microservices, and encodes the page redirect rules the web app
// relies on (protected pages bounce to /sign-in, auth pages bounce home).
package gateway

import (
	"meetai/internal/consul"
	"meetai/internal/session"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the gateway router
func SetupRouter(consulClient *consul.Client, sessionMgr session.Manager) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())

	// Create proxy handler
	proxyHandler := NewProxyHandler(consulClient)

	// Gateway health check
	r.GET("/health", proxyHandler.Health)

	// Public routes - forward to auth service (no session required)
	auth := r.Group("/auth")
	{
		auth.Any("/*path", proxyHandler.ProxyWithPathRewrite("auth-service", "/auth"))
	}

	// Generated avatars are public (referenced from <img> tags)
	r.GET("/avatar/:seed", proxyHandler.ProxyRequest("auth-service"))

	// Auth pages: a signed-in user has no business here, bounce home
	pages := r.Group("/")
	pages.Use(RedirectIfAuthenticated(sessionMgr))
	{
		pages.GET("/sign-in", proxyHandler.ProxyRequest("web-frontend"))
		pages.GET("/sign-up", proxyHandler.ProxyRequest("web-frontend"))
	}

	// Protected routes - require valid session
	api := r.Group("/api")
	api.Use(SessionAuthMiddleware(sessionMgr))
	{
		// Agents service
		agents := api.Group("/agents")
		{
			agents.Any("/*path", proxyHandler.ProxyWithPathRewrite("agents-service", "/api"))
			agents.Any("", proxyHandler.ProxyWithPathRewrite("agents-service", "/api"))
		}

		// Chat service
		api.POST("/chat", proxyHandler.ProxyWithPathRewrite("chat-service", "/api"))
		api.GET("/personas", proxyHandler.ProxyWithPathRewrite("chat-service", "/api"))
		api.GET("/transcripts/:agent_id", proxyHandler.ProxyWithPathRewrite("chat-service", "/api"))

		// Voice service
		api.POST("/voicechat", proxyHandler.ProxyWithPathRewrite("voice-service", "/api"))
		recordings := api.Group("/recordings")
		{
			recordings.Any("/*path", proxyHandler.ProxyWithPathRewrite("voice-service", "/api"))
			recordings.Any("", proxyHandler.ProxyWithPathRewrite("voice-service", "/api"))
		}

		// Profile management stays on the auth service
		users := api.Group("/users")
		{
			users.Any("/*path", proxyHandler.ProxyWithPathRewrite("auth-service", "/api"))
		}
	}

	return r
}
