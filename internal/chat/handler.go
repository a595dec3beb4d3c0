package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meetai/internal/llm"
)

// Handler handles HTTP requests for agent chat
type Handler struct {
	service *Service
}

// NewHandler creates a new chat handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Chat handles POST /chat
func (h *Handler) Chat(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	reply, err := h.service.Chat(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, llm.ErrBackendUnavailable) {
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Success: false,
				Error:   "The agent is unavailable right now. Please try again later.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to process chat message",
		})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Response: reply})
}

// ListPersonas handles GET /personas
func (h *Handler) ListPersonas(c *gin.Context) {
	personas, err := h.service.ListPersonas(c.Request.Context())
	if err != nil {
		if errors.Is(err, llm.ErrBackendUnavailable) {
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Success: false,
				Error:   "The agent backend is unavailable right now. Please try again later.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to list personas",
		})
		return
	}

	c.JSON(http.StatusOK, PersonasResponse{Personas: personas})
}

// GetTranscript handles GET /transcripts/:agent_id
func (h *Handler) GetTranscript(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	agentID := c.Param("agent_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	messages, err := h.service.GetTranscript(c.Request.Context(), agentID, userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to retrieve transcript",
		})
		return
	}

	c.JSON(http.StatusOK, MessagesResponse{Messages: messages})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "chat-service",
	})
}
