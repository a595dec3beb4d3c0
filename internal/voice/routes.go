package voice

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"meetai/internal/storage"
)

// Server holds dependencies for the voice service
type Server struct {
	port    string
	service *Service
}

// NewServer initializes the voice HTTP server
func NewServer() *http.Server {
	port := getEnv("PORT", "8084")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storageService, err := storage.New(ctx)
	if err != nil {
		log.Printf("Warning: failed to initialize storage service: %v. Recording archival disabled.", err)
		storageService = nil
	}

	s := &Server{
		port:    port,
		service: NewService(NewBackendClient(), storageService),
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  60 * time.Second,  // uploads
		WriteTimeout: 300 * time.Second, // streaming TTS replies
		IdleTimeout:  60 * time.Second,
	}
}

// RegisterRoutes sets up HTTP routes for the voice service
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-User-Email"},
		AllowCredentials: true,
	}))

	handler := NewHandler(s.service)

	// Health check endpoint (public, no auth required)
	r.GET("/health", handler.Health)

	// Voice API endpoints - all require authentication via Gateway
	protected := r.Group("/")
	protected.Use(AuthMiddleware())
	{
		protected.POST("/voicechat", handler.VoiceChat)
		protected.POST("/recordings/upload-url", handler.UploadURL)
		protected.POST("/recordings/download-url", handler.DownloadURL)
		protected.DELETE("/recordings/*key", handler.DeleteRecording)
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
