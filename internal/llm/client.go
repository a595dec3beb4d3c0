// Package llm provides a client for the persona LLM backend. The backend
// exposes an Ollama-compatible /api/chat endpoint plus an /adapters listing
// of the personas it can serve.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ErrBackendUnavailable indicates the LLM backend could not be reached
var ErrBackendUnavailable = errors.New("llm backend unavailable")

// Message is a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options controls generation parameters, passed through to the backend
type Options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// ChatRequest is the request body for /api/chat
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Options  *Options  `json:"options,omitempty"`
	Stream   bool      `json:"stream"`
}

// ChatResponse is the (non-streaming) response body from /api/chat
type ChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Client talks to the LLM backend
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new LLM client.
// LLM_BACKEND_URL points at the backend, LLM_MODEL selects the model.
func NewClient() *Client {
	baseURL := os.Getenv("LLM_BACKEND_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gemma:2b"
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // CPU inference is slow
		},
	}
}

// NewClientWithBaseURL creates a client against an explicit backend URL
func NewClientWithBaseURL(baseURL, model string) *Client {
	return &Client{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Chat sends a chat completion request and returns the assistant's reply
func (c *Client) Chat(ctx context.Context, messages []Message, opts *Options) (string, error) {
	reqBody := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Options:  opts,
		Stream:   false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: backend returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	return chatResp.Message.Content, nil
}

// ListPersonas returns the personas the backend can serve (GET /adapters)
func (c *Client) ListPersonas(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/adapters", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create personas request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: backend returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var body struct {
		Adapters []string `json:"adapters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode personas response: %w", err)
	}

	return body.Adapters, nil
}
