package agents

import (
	"time"
)

// Agent represents an AI agent owned by a user
type Agent struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Persona      string    `json:"persona" db:"persona"`
	Instructions string    `json:"instructions" db:"instructions"`
	AvatarSeed   string    `json:"avatar_seed" db:"avatar_seed"`
	AvatarURL    string    `json:"avatar_url" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CreateAgentRequest represents the request body for creating a new agent
// Note: user_id is extracted from authentication context (X-User-ID header), not from request body
type CreateAgentRequest struct {
	Name         string `json:"name" binding:"required,max=100"`
	Persona      string `json:"persona" binding:"required,max=100"`
	Instructions string `json:"instructions" binding:"omitempty,max=2000"`
}

// UpdateAgentRequest represents the request body for updating an agent
type UpdateAgentRequest struct {
	Name         *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Persona      *string `json:"persona,omitempty" binding:"omitempty,max=100"`
	Instructions *string `json:"instructions,omitempty" binding:"omitempty,max=2000"`
}

// PaginatedAgentsResponse represents paginated agents response
type PaginatedAgentsResponse struct {
	Agents     []Agent `json:"agents"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalCount int64   `json:"total_count"`
	TotalPages int     `json:"total_pages"`
}

// AgentResponse is a standard response wrapper
type AgentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *Agent `json:"data,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}
