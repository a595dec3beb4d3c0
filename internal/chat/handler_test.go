package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"meetai/internal/llm"
)

// Mock LLM client for handler tests
type mockLLM struct {
	chatFunc     func(ctx context.Context, messages []llm.Message, opts *llm.Options) (string, error)
	personasFunc func(ctx context.Context) ([]string, error)
}

func (m *mockLLM) Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (string, error) {
	return m.chatFunc(ctx, messages, opts)
}

func (m *mockLLM) ListPersonas(ctx context.Context) ([]string, error) {
	if m.personasFunc != nil {
		return m.personasFunc(ctx)
	}
	return nil, llm.ErrBackendUnavailable
}

// Mock message store for handler tests
type mockStore struct {
	saved []Message
}

func (m *mockStore) SaveMessage(ctx context.Context, agentID, userID, role, content string) (*Message, error) {
	msg := Message{AgentID: agentID, UserID: userID, Role: role, Content: content}
	m.saved = append(m.saved, msg)
	return &msg, nil
}

func (m *mockStore) GetByAgent(ctx context.Context, agentID, userID string, limit int) ([]Message, error) {
	return m.saved, nil
}

func chatBody(t *testing.T, req ChatRequest) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return bytes.NewReader(body)
}

func TestChatAppliesGenerationDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotOpts *llm.Options
	var gotMessages []llm.Message

	mock := &mockLLM{
		chatFunc: func(ctx context.Context, messages []llm.Message, opts *llm.Options) (string, error) {
			gotOpts = opts
			gotMessages = messages
			return "Here is my concise answer.", nil
		},
	}
	store := &mockStore{}
	h := NewHandler(NewService(mock, store))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/chat", h.Chat)

	req := httptest.NewRequest(http.MethodPost, "/chat", chatBody(t, ChatRequest{
		AgentName: "Ava",
		Message:   "What is a tort?",
		Persona:   "lawyer",
		AgentID:   "agent-1",
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Response != "Here is my concise answer." {
		t.Errorf("Unexpected response: %q", resp.Response)
	}

	if gotOpts == nil || gotOpts.NumPredict != DefaultMaxNewTokens {
		t.Errorf("Expected default max_new_tokens %d, got %+v", DefaultMaxNewTokens, gotOpts)
	}
	if gotOpts.Temperature != DefaultTemperature {
		t.Errorf("Expected default temperature %v, got %v", DefaultTemperature, gotOpts.Temperature)
	}
	if gotOpts.TopP != DefaultTopP {
		t.Errorf("Expected default top_p %v, got %v", DefaultTopP, gotOpts.TopP)
	}

	if len(gotMessages) != 2 || gotMessages[0].Role != "system" {
		t.Fatalf("Expected system+user messages, got %+v", gotMessages)
	}

	// both turns persisted
	if len(store.saved) != 2 {
		t.Fatalf("Expected 2 persisted messages, got %d", len(store.saved))
	}
	if store.saved[0].Role != RoleUser || store.saved[1].Role != RoleAssistant {
		t.Errorf("Unexpected roles: %s, %s", store.saved[0].Role, store.saved[1].Role)
	}
}

func TestChatBackendUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mock := &mockLLM{
		chatFunc: func(ctx context.Context, messages []llm.Message, opts *llm.Options) (string, error) {
			return "", llm.ErrBackendUnavailable
		},
	}
	h := NewHandler(NewService(mock, &mockStore{}))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/chat", h.Chat)

	req := httptest.NewRequest(http.MethodPost, "/chat", chatBody(t, ChatRequest{
		AgentName: "Ava",
		Message:   "hello",
		Persona:   "doctor",
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestChatMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(&mockLLM{}, &mockStore{}))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/chat", h.Chat)

	// no persona
	req := httptest.NewRequest(http.MethodPost, "/chat", chatBody(t, ChatRequest{
		AgentName: "Ava",
		Message:   "hello",
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListPersonas(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mock := &mockLLM{
		personasFunc: func(ctx context.Context) ([]string, error) {
			return []string{"lawyer", "doctor"}, nil
		},
	}
	h := NewHandler(NewService(mock, &mockStore{}))

	r := gin.New()
	r.GET("/personas", h.ListPersonas)

	req := httptest.NewRequest(http.MethodGet, "/personas", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp PersonasResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Personas) != 2 {
		t.Errorf("Expected 2 personas, got %d", len(resp.Personas))
	}
}
