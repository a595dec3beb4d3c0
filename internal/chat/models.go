package chat

import (
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents one turn of an agent conversation
type Message struct {
	ID        string    `json:"id" db:"id"`
	AgentID   string    `json:"agent_id" db:"agent_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChatRequest represents the request body for POST /chat
type ChatRequest struct {
	AgentName    string   `json:"agent_name" binding:"required,max=100"`
	Message      string   `json:"message" binding:"required,max=4000"`
	Persona      string   `json:"persona" binding:"required,max=100"`
	AgentID      string   `json:"agent_id,omitempty"`
	MaxNewTokens *int     `json:"max_new_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
}

// ChatResponse represents the response body for POST /chat
type ChatResponse struct {
	Response string `json:"response"`
}

// PersonasResponse represents the response body for GET /personas
type PersonasResponse struct {
	Personas []string `json:"personas"`
}

// MessagesResponse represents a listing of an agent's transcript
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
