package agents

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"meetai/internal/database"
)

// Server holds dependencies for the agents service
type Server struct {
	port string
	db   database.Service
}

// NewServer initializes the agents HTTP server
func NewServer() *http.Server {
	port := getEnv("PORT", "8082")

	s := &Server{
		port: port,
		db:   database.New(),
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// RegisterRoutes sets up HTTP routes for the agents service
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-User-Email"},
		AllowCredentials: true,
	}))

	repo := NewRepository(s.db)

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")
	redisDB := 0

	service := NewService(repo, redisAddr, redisPassword, redisDB)
	handler := NewHandler(service)

	// Health check endpoint (public, no auth required)
	r.GET("/health", handler.Health)

	// Agents API endpoints - all require authentication via Gateway
	agentsGroup := r.Group("/agents")
	agentsGroup.Use(AuthMiddleware())
	{
		agentsGroup.GET("", handler.ListAgents)       // GET /agents?page=1&page_size=20
		agentsGroup.POST("", handler.CreateAgent)     // POST /agents
		agentsGroup.GET("/:id", handler.GetAgent)     // GET /agents/:id
		agentsGroup.PATCH("/:id", handler.UpdateAgent)  // PATCH /agents/:id
		agentsGroup.DELETE("/:id", handler.DeleteAgent) // DELETE /agents/:id
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
