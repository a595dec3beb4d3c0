package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// ErrBackendUnavailable indicates the voice backend could not be reached
var ErrBackendUnavailable = errors.New("voice backend unavailable")

// Reply is the synthesized audio answer streamed back from the backend
type Reply struct {
	Body        io.ReadCloser
	ContentType string
}

// BackendClient is the interface for the STT -> LLM -> TTS pipeline backend
type BackendClient interface {
	VoiceChat(ctx context.Context, audio []byte, filename, agentName, persona string) (*Reply, error)
}

// httpBackendClient talks to the voice pipeline over HTTP
type httpBackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient creates a client for the voice backend.
// VOICE_BACKEND_URL points at the pipeline service.
func NewBackendClient() BackendClient {
	baseURL := os.Getenv("VOICE_BACKEND_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return NewBackendClientWithBaseURL(baseURL)
}

// NewBackendClientWithBaseURL creates a client against an explicit backend URL
func NewBackendClientWithBaseURL(baseURL string) BackendClient {
	return &httpBackendClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 300 * time.Second, // STT + generation + TTS
		},
	}
}

// VoiceChat forwards the recording to the backend and returns the audio reply.
// The caller owns Reply.Body and must close it.
func (c *httpBackendClient) VoiceChat(ctx context.Context, audio []byte, filename, agentName, persona string) (*Reply, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := writer.WriteField("agentname", agentName); err != nil {
		return nil, fmt.Errorf("failed to write agentname field: %w", err)
	}
	if err := writer.WriteField("persona", persona); err != nil {
		return nil, fmt.Errorf("failed to write persona field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voicechat/", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create voicechat request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: backend returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	return &Reply{
		Body:        resp.Body,
		ContentType: contentType,
	}, nil
}
