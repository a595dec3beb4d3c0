package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"meetai/internal/database"
)

// Repository handles all database operations for chat transcripts
type Repository struct {
	db database.Service
}

// NewRepository creates a new chat repository
func NewRepository(db database.Service) *Repository {
	return &Repository{db: db}
}

// SaveMessage appends one message to an agent's transcript
func (r *Repository) SaveMessage(ctx context.Context, agentID, userID, role, content string) (*Message, error) {
	query := `
		INSERT INTO messages (id, agent_id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, agent_id, user_id, role, content, created_at
	`

	msg := &Message{}
	err := r.db.QueryRow(ctx, query, uuid.New().String(), agentID, userID, role, content).Scan(
		&msg.ID,
		&msg.AgentID,
		&msg.UserID,
		&msg.Role,
		&msg.Content,
		&msg.CreatedAt,
	)

	if err != nil {
		log.Printf("Error saving message: %v", err)
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

// GetByAgent retrieves an agent's transcript, oldest first
func (r *Repository) GetByAgent(ctx context.Context, agentID, userID string, limit int) ([]Message, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, agent_id, user_id, role, content, created_at
		FROM messages
		WHERE agent_id = $1 AND user_id = $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, agentID, userID, limit)
	if err != nil {
		log.Printf("Error querying messages: %v", err)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		msg := Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.AgentID,
			&msg.UserID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			log.Printf("Error scanning message row: %v", err)
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}
