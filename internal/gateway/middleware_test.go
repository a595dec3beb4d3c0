package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meetai/internal/session"

	"github.com/gin-gonic/gin"
)

// Mock session manager for testing
type mockSessionManager struct {
	getFunc      func(ctx context.Context, token string) (*session.Session, error)
	validateFunc func(ctx context.Context, token string) (bool, error)
}

func (m *mockSessionManager) Get(ctx context.Context, token string) (*session.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, token)
	}
	return nil, errors.New("session not found")
}

func (m *mockSessionManager) Create(ctx context.Context, params session.CreateParams) (*session.Session, error) {
	return nil, nil
}

func (m *mockSessionManager) Delete(ctx context.Context, token string) error {
	return nil
}

func (m *mockSessionManager) Validate(ctx context.Context, token string) (bool, error) {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, token)
	}
	return true, nil
}

func validSessionManager() *mockSessionManager {
	return &mockSessionManager{
		getFunc: func(ctx context.Context, token string) (*session.Session, error) {
			return &session.Session{
				ID:        "sess-id",
				Token:     token,
				UserID:    "test-user-id",
				Email:     "test@example.com",
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}
}

func TestSessionAuthMiddleware_ValidSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SessionAuthMiddleware(validSessionManager()))
	r.GET("/test", func(c *gin.Context) {
		// Check that headers were injected into the request
		userID := c.Request.Header.Get("X-User-ID")
		email := c.Request.Header.Get("X-User-Email")

		// Also check Gin context
		userIDCtx, _ := c.Get("user_id")
		emailCtx, _ := c.Get("email")

		c.JSON(http.StatusOK, gin.H{
			"user_id":      userIDCtx,
			"email":        emailCtx,
			"header_user":  userID,
			"header_email": email,
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{
		Name:  "session_id",
		Value: "valid-session-token",
	})
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["user_id"] != "test-user-id" {
		t.Errorf("Expected user_id to be test-user-id, got %v", response["user_id"])
	}
	if response["header_user"] != "test-user-id" {
		t.Errorf("Expected header_user to be test-user-id, got %v", response["header_user"])
	}
	if response["header_email"] != "test@example.com" {
		t.Errorf("Expected header_email to be test@example.com, got %v", response["header_email"])
	}
}

func TestSessionAuthMiddleware_NoSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SessionAuthMiddleware(&mockSessionManager{}))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	// No session cookie, no Accept: text/html
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestSessionAuthMiddleware_BrowserRedirectsToSignIn(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SessionAuthMiddleware(&mockSessionManager{}))
	r.GET("/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/sign-in" {
		t.Errorf("Expected redirect to /sign-in, got %s", loc)
	}
}

func TestSessionAuthMiddleware_ExpiredSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockMgr := &mockSessionManager{
		getFunc: func(ctx context.Context, token string) (*session.Session, error) {
			return &session.Session{
				ID:        "sess-id",
				Token:     token,
				UserID:    "test-user-id",
				Email:     "test@example.com",
				CreatedAt: time.Now().Add(-2 * time.Hour),
				ExpiresAt: time.Now().Add(-1 * time.Hour),
			}, nil
		},
	}

	r := gin.New()
	r.Use(SessionAuthMiddleware(mockMgr))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-token"})
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestRedirectIfAuthenticated_WithSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RedirectIfAuthenticated(validSessionManager()))
	r.GET("/sign-in", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": "sign-in"})
	})

	req := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-token"})
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Expected redirect to /, got %s", loc)
	}
}

func TestRedirectIfAuthenticated_WithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RedirectIfAuthenticated(&mockSessionManager{}))
	r.GET("/sign-in", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": "sign-in"})
	})

	req := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/test", func(c *gin.Context) {
		requestID := c.GetString("request_id")
		if requestID == "" {
			t.Error("Expected request_id in context")
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID response header")
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware())
	r.POST("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Expected Access-Control-Allow-Credentials header")
	}
}
