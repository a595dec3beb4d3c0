package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"meetai/internal/database"
)

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrNameExists    = errors.New("agent name already in use")
	ErrUnauthorized  = errors.New("unauthorized to modify this agent")
)

// Repository handles all database operations for agents
type Repository struct {
	db database.Service
}

// NewRepository creates a new agents repository
func NewRepository(db database.Service) *Repository {
	return &Repository{db: db}
}

// Create inserts a new agent into the database
func (r *Repository) Create(ctx context.Context, userID string, req CreateAgentRequest) (*Agent, error) {
	query := `
		INSERT INTO agents (id, user_id, name, persona, instructions, avatar_seed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, user_id, name, persona, instructions, avatar_seed, created_at, updated_at
	`

	agent := &Agent{}
	err := r.db.QueryRow(ctx, query,
		uuid.New().String(),
		userID,
		req.Name,
		req.Persona,
		req.Instructions,
		req.Name, // avatar seed defaults to the agent name
	).Scan(
		&agent.ID,
		&agent.UserID,
		&agent.Name,
		&agent.Persona,
		&agent.Instructions,
		&agent.AvatarSeed,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "agents_user_name_key") {
			return nil, ErrNameExists
		}
		log.Printf("Error creating agent: %v", err)
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return agent, nil
}

// GetByID retrieves a single agent by ID
func (r *Repository) GetByID(ctx context.Context, agentID string) (*Agent, error) {
	query := `
		SELECT id, user_id, name, persona, instructions, avatar_seed, created_at, updated_at
		FROM agents
		WHERE id = $1
	`

	agent := &Agent{}
	err := r.db.QueryRow(ctx, query, agentID).Scan(
		&agent.ID,
		&agent.UserID,
		&agent.Name,
		&agent.Persona,
		&agent.Instructions,
		&agent.AvatarSeed,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		log.Printf("Error getting agent by ID: %v", err)
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}

// GetByName retrieves a single agent owned by a user, by name
func (r *Repository) GetByName(ctx context.Context, userID, name string) (*Agent, error) {
	query := `
		SELECT id, user_id, name, persona, instructions, avatar_seed, created_at, updated_at
		FROM agents
		WHERE user_id = $1 AND name = $2
	`

	agent := &Agent{}
	err := r.db.QueryRow(ctx, query, userID, name).Scan(
		&agent.ID,
		&agent.UserID,
		&agent.Name,
		&agent.Persona,
		&agent.Instructions,
		&agent.AvatarSeed,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		log.Printf("Error getting agent by name: %v", err)
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}

// GetByUserID retrieves all agents owned by a user with pagination (newest first)
func (r *Repository) GetByUserID(ctx context.Context, userID string, page, pageSize int) ([]Agent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM agents WHERE user_id = $1`
	err := r.db.QueryRow(ctx, countQuery, userID).Scan(&totalCount)
	if err != nil {
		log.Printf("Error counting agents: %v", err)
		return nil, 0, fmt.Errorf("failed to count agents: %w", err)
	}

	query := `
		SELECT id, user_id, name, persona, instructions, avatar_seed, created_at, updated_at
		FROM agents
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	agents, err := r.queryRows(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	return agents, totalCount, nil
}

// Update modifies an existing agent (only if user owns it)
func (r *Repository) Update(ctx context.Context, agentID, userID string, req UpdateAgentRequest) (*Agent, error) {
	existing, err := r.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if existing.UserID != userID {
		return nil, ErrUnauthorized
	}

	// Build dynamic update query based on provided fields
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Persona != nil {
		updates["persona"] = *req.Persona
	}
	if req.Instructions != nil {
		updates["instructions"] = *req.Instructions
	}

	if len(updates) == 0 {
		return existing, nil // Nothing to update
	}

	query := `UPDATE agents SET `
	args := []interface{}{}
	argPos := 1

	for field, value := range updates {
		if argPos > 1 {
			query += ", "
		}
		query += fmt.Sprintf("%s = $%d", field, argPos)
		args = append(args, value)
		argPos++
	}

	query += fmt.Sprintf(`, updated_at = NOW() WHERE id = $%d AND user_id = $%d
		RETURNING id, user_id, name, persona, instructions, avatar_seed, created_at, updated_at`, argPos, argPos+1)
	args = append(args, agentID, userID)

	agent := &Agent{}
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&agent.ID,
		&agent.UserID,
		&agent.Name,
		&agent.Persona,
		&agent.Instructions,
		&agent.AvatarSeed,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		if isUniqueViolation(err, "agents_user_name_key") {
			return nil, ErrNameExists
		}
		log.Printf("Error updating agent: %v", err)
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}

	return agent, nil
}

// Delete removes an agent (only if user owns it)
func (r *Repository) Delete(ctx context.Context, agentID, userID string) error {
	existing, err := r.GetByID(ctx, agentID)
	if err != nil {
		return err
	}

	if existing.UserID != userID {
		return ErrUnauthorized
	}

	query := `DELETE FROM agents WHERE id = $1 AND user_id = $2`
	rowsAffected, err := r.db.Exec(ctx, query, agentID, userID)
	if err != nil {
		log.Printf("Error deleting agent: %v", err)
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAgentNotFound
	}

	return nil
}

// Helper method to scan multiple rows
func (r *Repository) queryRows(ctx context.Context, query string, args ...interface{}) ([]Agent, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying agents: %v", err)
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	agents := []Agent{}
	for rows.Next() {
		agent := Agent{}
		err := rows.Scan(
			&agent.ID,
			&agent.UserID,
			&agent.Name,
			&agent.Persona,
			&agent.Instructions,
			&agent.AvatarSeed,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		)
		if err != nil {
			log.Printf("Error scanning agent row: %v", err)
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}

	return agents, nil
}

func isUniqueViolation(err error, constraint string) bool {
	return err != nil && strings.Contains(err.Error(), constraint)
}
