package chat

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"meetai/internal/database"
	"meetai/internal/llm"
)

// Server holds dependencies for the chat service
type Server struct {
	port string
	db   database.Service
}

// NewServer initializes the chat HTTP server
func NewServer() *http.Server {
	port := getEnv("PORT", "8083")

	s := &Server{
		port: port,
		db:   database.New(),
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 180 * time.Second, // LLM generation can be slow
		IdleTimeout:  60 * time.Second,
	}
}

// RegisterRoutes sets up HTTP routes for the chat service
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-User-Email"},
		AllowCredentials: true,
	}))

	repo := NewRepository(s.db)
	service := NewService(llm.NewClient(), repo)
	handler := NewHandler(service)

	// Health check endpoint (public, no auth required)
	r.GET("/health", handler.Health)

	// Chat API endpoints - all require authentication via Gateway
	protected := r.Group("/")
	protected.Use(AuthMiddleware())
	{
		protected.POST("/chat", handler.Chat)
		protected.GET("/personas", handler.ListPersonas)
		protected.GET("/transcripts/:agent_id", handler.GetTranscript)
	}

	return r
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
