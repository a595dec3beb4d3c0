package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// stubRow satisfies pgx.Row with a canned agent record
type stubRow struct {
	agent *Agent
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.agent.ID
	*(dest[1].(*string)) = r.agent.UserID
	*(dest[2].(*string)) = r.agent.Name
	*(dest[3].(*string)) = r.agent.Persona
	*(dest[4].(*string)) = r.agent.Instructions
	*(dest[5].(*string)) = r.agent.AvatarSeed
	*(dest[6].(*time.Time)) = r.agent.CreatedAt
	*(dest[7].(*time.Time)) = r.agent.UpdatedAt
	return nil
}

// stubDB satisfies database.Service for single-row reads
type stubDB struct {
	row pgx.Row
}

func (f *stubDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row { return f.row }
func (f *stubDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *stubDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, nil
}
func (f *stubDB) Health() map[string]string { return nil }
func (f *stubDB) Close() error              { return nil }

func handlerWithStoredAgent(agent *Agent) *Handler {
	repo := NewRepository(&stubDB{row: stubRow{agent: agent}})
	return NewHandler(&Service{repo: repo})
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/agents", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareSetsUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/agents", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			t.Error("Expected user_id in context")
		}
		if userID != "user-42" {
			t.Errorf("Expected user-42, got %s", userID)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	req.Header.Set("X-User-ID", "user-42")
	req.Header.Set("X-User-Email", "alice@example.com")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCreateAgentInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&Service{})

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/agents", h.CreateAgent)

	// missing required persona field
	body, _ := json.Marshal(map[string]string{"name": "Ava"})
	req := httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-42")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("Expected success=false")
	}
}

func TestGetAgentReturnsOwnAgent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Now()
	h := handlerWithStoredAgent(&Agent{
		ID:           "agent-1",
		UserID:       "owner-1",
		Name:         "Ava",
		Persona:      "language tutor",
		Instructions: "speak only french",
		AvatarSeed:   "Ava",
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/agents/:id", h.GetAgent)

	req := httptest.NewRequest(http.MethodGet, "/agents/agent-1", nil)
	req.Header.Set("X-User-ID", "owner-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp AgentResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Data == nil || resp.Data.ID != "agent-1" {
		t.Errorf("Expected agent-1 in response, got %+v", resp.Data)
	}
}

func TestGetAgentHiddenFromOtherUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Now()
	h := handlerWithStoredAgent(&Agent{
		ID:           "agent-1",
		UserID:       "owner-1",
		Name:         "Ava",
		Persona:      "lawyer",
		Instructions: "confidential instructions",
		AvatarSeed:   "Ava",
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/agents/:id", h.GetAgent)

	req := httptest.NewRequest(http.MethodGet, "/agents/agent-1", nil)
	req.Header.Set("X-User-ID", "other-user")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 for another user's agent, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "confidential instructions") {
		t.Error("Response leaked the agent's instructions")
	}
}

func TestCreateAgentUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(&Service{})

	r := gin.New()
	r.POST("/agents", h.CreateAgent)

	body, _ := json.Marshal(CreateAgentRequest{Name: "Ava", Persona: "language tutor"})
	req := httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}
