package agents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for agents
type Handler struct {
	service *Service
}

// NewHandler creates a new agents handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateAgent handles POST /agents
func (h *Handler) CreateAgent(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	agent, err := h.service.CreateAgent(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrNameExists) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Success: false,
				Error:   "You already have an agent with this name",
				Field:   "name",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to create agent",
		})
		return
	}

	c.JSON(http.StatusCreated, AgentResponse{
		Success: true,
		Message: "Agent created successfully",
		Data:    agent,
	})
}

// GetAgent handles GET /agents/:id
func (h *Handler) GetAgent(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	agentID := c.Param("id")

	agent, err := h.service.GetAgent(c.Request.Context(), agentID, userID)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Success: false,
				Error:   "Agent not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to retrieve agent",
		})
		return
	}

	c.JSON(http.StatusOK, AgentResponse{
		Success: true,
		Data:    agent,
	})
}

// ListAgents handles GET /agents with pagination
func (h *Handler) ListAgents(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	agents, err := h.service.ListAgents(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to retrieve agents",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    agents,
	})
}

// UpdateAgent handles PATCH /agents/:id
func (h *Handler) UpdateAgent(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	agentID := c.Param("id")

	var req UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	agent, err := h.service.UpdateAgent(c.Request.Context(), agentID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrAgentNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Success: false,
				Error:   "Agent not found",
			})
		case errors.Is(err, ErrUnauthorized):
			c.JSON(http.StatusForbidden, ErrorResponse{
				Success: false,
				Error:   "You are not authorized to update this agent",
			})
		case errors.Is(err, ErrNameExists):
			c.JSON(http.StatusConflict, ErrorResponse{
				Success: false,
				Error:   "You already have an agent with this name",
				Field:   "name",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Success: false,
				Error:   "Failed to update agent",
			})
		}
		return
	}

	c.JSON(http.StatusOK, AgentResponse{
		Success: true,
		Message: "Agent updated successfully",
		Data:    agent,
	})
}

// DeleteAgent handles DELETE /agents/:id
func (h *Handler) DeleteAgent(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	agentID := c.Param("id")

	err := h.service.DeleteAgent(c.Request.Context(), agentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAgentNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Success: false,
				Error:   "Agent not found",
			})
		case errors.Is(err, ErrUnauthorized):
			c.JSON(http.StatusForbidden, ErrorResponse{
				Success: false,
				Error:   "You are not authorized to delete this agent",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Success: false,
				Error:   "Failed to delete agent",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Agent deleted successfully",
	})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "agents-service",
	})
}
