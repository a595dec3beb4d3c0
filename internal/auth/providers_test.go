package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "https://app.example.com/callback", r.PostForm.Get("redirect_uri"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret-1", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-123",
			"refresh_token": "rt-456",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	client := NewProviderClient(srv.Client())
	provider := Provider{
		ID:           ProviderGoogle,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		TokenURL:     srv.URL,
	}

	token, err := client.Exchange(context.Background(), provider, "the-code", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, "at-123", token.AccessToken)
	assert.Equal(t, "rt-456", token.RefreshToken)
	assert.Equal(t, int64(3600), token.ExpiresIn)
}

func TestExchangeRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewProviderClient(srv.Client())
	_, err := client.Exchange(context.Background(), Provider{TokenURL: srv.URL}, "bad-code", "uri")
	assert.Error(t, err)
}

func TestExchangeRejectsMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	client := NewProviderClient(srv.Client())
	_, err := client.Exchange(context.Background(), Provider{TokenURL: srv.URL}, "code", "uri")
	assert.Error(t, err)
}

func TestUserInfoOIDCShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"sub":     "google-sub-1",
			"email":   "alice@example.com",
			"name":    "Alice",
			"picture": "https://lh3.example.com/alice.png",
		})
	}))
	defer srv.Close()

	client := NewProviderClient(srv.Client())
	profile, err := client.UserInfo(context.Background(), Provider{UserInfoURL: srv.URL}, "at-123")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", profile.Subject)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "https://lh3.example.com/alice.png", profile.Picture)
}

func TestUserInfoGitHubShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":         12345,
			"login":      "octocat",
			"email":      "octo@example.com",
			"avatar_url": "https://avatars.example.com/u/12345",
		})
	}))
	defer srv.Close()

	client := NewProviderClient(srv.Client())
	profile, err := client.UserInfo(context.Background(), Provider{UserInfoURL: srv.URL}, "at-999")
	require.NoError(t, err)
	assert.Equal(t, "12345", profile.Subject)
	assert.Equal(t, "octocat", profile.Name)
	assert.Equal(t, "https://avatars.example.com/u/12345", profile.Picture)
}

func TestUserInfoRejectsMissingSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email":"nobody@example.com"}`))
	}))
	defer srv.Close()

	client := NewProviderClient(srv.Client())
	_, err := client.UserInfo(context.Background(), Provider{UserInfoURL: srv.URL}, "at")
	assert.Error(t, err)
}
