package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrUnknownProvider is returned for providers the service is not configured for
var ErrUnknownProvider = errors.New("unknown social provider")

// Provider holds the OAuth endpoints and client credentials for one identity provider
type Provider struct {
	ID           string
	ClientID     string
	ClientSecret string
	TokenURL     string
	UserInfoURL  string
}

// ProviderToken is the result of an authorization-code exchange
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	ExpiresIn    int64
}

// ProviderProfile is the subset of the userinfo response the service consumes
type ProviderProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// ProviderClient encapsulates outbound HTTP calls to external identity providers
type ProviderClient interface {
	Exchange(ctx context.Context, provider Provider, code, redirectURI string) (*ProviderToken, error)
	UserInfo(ctx context.Context, provider Provider, accessToken string) (*ProviderProfile, error)
}

// LoadProviders reads provider credentials from the environment.
// A provider with no client ID configured is simply absent.
func LoadProviders() map[string]Provider {
	providers := make(map[string]Provider)

	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		providers[ProviderGoogle] = Provider{
			ID:           ProviderGoogle,
			ClientID:     clientID,
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			TokenURL:     "https://oauth2.googleapis.com/token",
			UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		}
	}

	if clientID := os.Getenv("GITHUB_CLIENT_ID"); clientID != "" {
		providers[ProviderGitHub] = Provider{
			ID:           ProviderGitHub,
			ClientID:     clientID,
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			TokenURL:     "https://github.com/login/oauth/access_token",
			UserInfoURL:  "https://api.github.com/user",
		}
	}

	return providers
}

// httpProviderClient is the default ProviderClient implementation
type httpProviderClient struct {
	client *http.Client
}

// NewProviderClient creates a ProviderClient with sane timeouts
func NewProviderClient(client *http.Client) ProviderClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpProviderClient{client: client}
}

// Exchange performs the OAuth authorization-code exchange
func (c *httpProviderClient) Exchange(ctx context.Context, provider Provider, code, redirectURI string) (*ProviderToken, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)
	data.Set("client_id", provider.ClientID)
	if provider.ClientSecret != "" {
		data.Set("client_secret", provider.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed: status=%d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	token := &ProviderToken{
		AccessToken:  stringValue(raw["access_token"]),
		RefreshToken: stringValue(raw["refresh_token"]),
		IDToken:      stringValue(raw["id_token"]),
		TokenType:    stringValue(raw["token_type"]),
	}
	if exp, ok := raw["expires_in"].(float64); ok {
		token.ExpiresIn = int64(exp)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned no access token")
	}

	return token, nil
}

// UserInfo loads the provider's userinfo profile.
// Field names differ between providers (GitHub uses login/avatar_url), so
// the mapping coalesces the known variants.
func (c *httpProviderClient) UserInfo(ctx context.Context, provider Provider, accessToken string) (*ProviderProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("userinfo failed: status=%d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}

	profile := &ProviderProfile{
		Subject: stringValue(coalesce(raw["sub"], raw["id"])),
		Email:   stringValue(raw["email"]),
		Name:    stringValue(coalesce(raw["name"], raw["login"])),
		Picture: stringValue(coalesce(raw["picture"], raw["avatar_url"])),
	}
	if profile.Subject == "" {
		return nil, fmt.Errorf("userinfo returned no subject")
	}

	return profile, nil
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case float64:
		// GitHub returns numeric IDs
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func coalesce(values ...any) any {
	for _, v := range values {
		if v != nil && stringValue(v) != "" {
			return v
		}
	}
	return nil
}
