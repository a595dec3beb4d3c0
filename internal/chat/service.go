package chat

import (
	"context"
	"log"

	"meetai/internal/llm"
)

// Generation defaults, matching the persona backend's contract
const (
	DefaultMaxNewTokens = 64
	DefaultTemperature  = 0.3
	DefaultTopP         = 0.9
)

// LLMClient is the subset of the llm client the chat service uses
type LLMClient interface {
	Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (string, error)
	ListPersonas(ctx context.Context) ([]string, error)
}

// MessageStore persists chat transcripts
type MessageStore interface {
	SaveMessage(ctx context.Context, agentID, userID, role, content string) (*Message, error)
	GetByAgent(ctx context.Context, agentID, userID string, limit int) ([]Message, error)
}

// Service handles business logic for agent chat
type Service struct {
	llm   LLMClient
	store MessageStore
}

// NewService creates a new chat service
func NewService(llmClient LLMClient, store MessageStore) *Service {
	return &Service{
		llm:   llmClient,
		store: store,
	}
}

// Chat sends one user message to the persona backend and returns the reply.
// The transcript is persisted when the request carries an agent ID.
func (s *Service) Chat(ctx context.Context, userID string, req ChatRequest) (string, error) {
	opts := &llm.Options{
		NumPredict:  DefaultMaxNewTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
	if req.MaxNewTokens != nil {
		opts.NumPredict = *req.MaxNewTokens
	}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		opts.TopP = *req.TopP
	}

	messages := []llm.Message{
		{Role: "system", Content: llm.ChatSystemPrompt(req.Persona)},
		{Role: RoleUser, Content: req.Message},
	}

	reply, err := s.llm.Chat(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	if req.AgentID != "" && s.store != nil {
		if _, err := s.store.SaveMessage(ctx, req.AgentID, userID, RoleUser, req.Message); err != nil {
			log.Printf("Warning: failed to persist user message: %v", err)
		}
		if _, err := s.store.SaveMessage(ctx, req.AgentID, userID, RoleAssistant, reply); err != nil {
			log.Printf("Warning: failed to persist assistant message: %v", err)
		}
	}

	return reply, nil
}

// ListPersonas returns the personas available on the backend
func (s *Service) ListPersonas(ctx context.Context) ([]string, error) {
	return s.llm.ListPersonas(ctx)
}

// GetTranscript returns an agent's persisted transcript
func (s *Service) GetTranscript(ctx context.Context, agentID, userID string, limit int) ([]Message, error) {
	return s.store.GetByAgent(ctx, agentID, userID, limit)
}
