package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// Mock voice backend for handler tests
type mockBackend struct {
	voiceChatFunc func(ctx context.Context, audio []byte, filename, agentName, persona string) (*Reply, error)
}

func (m *mockBackend) VoiceChat(ctx context.Context, audio []byte, filename, agentName, persona string) (*Reply, error) {
	return m.voiceChatFunc(ctx, audio, filename, agentName, persona)
}

// Fake object storage for handler tests
type fakeStorage struct {
	uploads map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeStorage) GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error) {
	return "http://minio.local/upload/" + key, nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "http://minio.local/download/" + key, nil
}

func (f *fakeStorage) DeleteFile(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) EnsureBucketExists(ctx context.Context) error { return nil }

func (f *fakeStorage) Health(ctx context.Context) error { return nil }

func multipartBody(t *testing.T, fields map[string]string, filename string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := part.Write(audio); err != nil {
			t.Fatalf("Failed to write audio: %v", err)
		}
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("Failed to write field %s: %v", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	return &buf, writer.FormDataContentType()
}

func TestVoiceChatStreamsReplyAndArchives(t *testing.T) {
	gin.SetMode(gin.TestMode)

	wavReply := []byte("RIFF....WAVEfmt fake-audio")

	backend := &mockBackend{
		voiceChatFunc: func(ctx context.Context, audio []byte, filename, agentName, persona string) (*Reply, error) {
			if agentName != "Ava" || persona != "lawyer" {
				t.Errorf("Unexpected form fields: %s, %s", agentName, persona)
			}
			if string(audio) != "fake-recording" {
				t.Errorf("Audio bytes not forwarded intact")
			}
			return &Reply{
				Body:        io.NopCloser(bytes.NewReader(wavReply)),
				ContentType: "audio/wav",
			}, nil
		},
	}
	store := newFakeStorage()
	h := NewHandler(NewService(backend, store))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/voicechat", h.VoiceChat)

	body, contentType := multipartBody(t,
		map[string]string{"agentname": "Ava", "persona": "lawyer"},
		"recording.webm", []byte("fake-recording"))

	req := httptest.NewRequest(http.MethodPost, "/voicechat", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Expected audio/wav, got %s", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), wavReply) {
		t.Error("Reply audio not streamed intact")
	}

	// recording archived under the user's namespace
	key := w.Header().Get("X-Recording-Key")
	if !strings.HasPrefix(key, "recordings/user-1/") {
		t.Errorf("Expected namespaced recording key, got %q", key)
	}
	if _, ok := store.uploads[key]; !ok {
		t.Errorf("Expected recording archived under %s", key)
	}
}

func TestVoiceChatMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(&mockBackend{}, newFakeStorage()))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/voicechat", h.VoiceChat)

	// file present but no persona
	body, contentType := multipartBody(t,
		map[string]string{"agentname": "Ava"},
		"recording.webm", []byte("fake-recording"))

	req := httptest.NewRequest(http.MethodPost, "/voicechat", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestVoiceChatMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(&mockBackend{}, newFakeStorage()))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/voicechat", h.VoiceChat)

	body, contentType := multipartBody(t,
		map[string]string{"agentname": "Ava", "persona": "lawyer"},
		"", nil)

	req := httptest.NewRequest(http.MethodPost, "/voicechat", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestVoiceChatBackendUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	backend := &mockBackend{
		voiceChatFunc: func(ctx context.Context, audio []byte, filename, agentName, persona string) (*Reply, error) {
			return nil, ErrBackendUnavailable
		},
	}
	h := NewHandler(NewService(backend, newFakeStorage()))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/voicechat", h.VoiceChat)

	body, contentType := multipartBody(t,
		map[string]string{"agentname": "Ava", "persona": "lawyer"},
		"recording.webm", []byte("fake-recording"))

	req := httptest.NewRequest(http.MethodPost, "/voicechat", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}

func TestVoiceChatOversizedUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(&mockBackend{}, newFakeStorage()))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/voicechat", h.VoiceChat)

	oversized := bytes.Repeat([]byte("a"), MaxUploadBytes+1)
	body, contentType := multipartBody(t,
		map[string]string{"agentname": "Ava", "persona": "lawyer"},
		"recording.webm", oversized)

	req := httptest.NewRequest(http.MethodPost, "/voicechat", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestUploadURLNamespacedToUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(&mockBackend{}, newFakeStorage()))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/recordings/upload-url", h.UploadURL)

	body, _ := json.Marshal(UploadURLRequest{Filename: "take-one.wav"})
	req := httptest.NewRequest(http.MethodPost, "/recordings/upload-url", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp UploadURLResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Key, "recordings/user-1/") {
		t.Errorf("Expected namespaced key, got %q", resp.Key)
	}
	if !strings.HasSuffix(resp.Key, ".wav") {
		t.Errorf("Expected key to keep the file extension, got %q", resp.Key)
	}
	if resp.URL == "" {
		t.Error("Expected a presigned URL")
	}
}

func TestDownloadURLForeignKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewService(&mockBackend{}, newFakeStorage()))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.POST("/recordings/download-url", h.DownloadURL)

	body, _ := json.Marshal(DownloadURLRequest{Key: "recordings/other-user/abc.webm"})
	req := httptest.NewRequest(http.MethodPost, "/recordings/download-url", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestDeleteRecording(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newFakeStorage()
	h := NewHandler(NewService(&mockBackend{}, store))

	r := gin.New()
	r.Use(AuthMiddleware())
	r.DELETE("/recordings/*key", h.DeleteRecording)

	req := httptest.NewRequest(http.MethodDelete, "/recordings/recordings/user-1/abc.webm", nil)
	req.Header.Set("X-User-ID", "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.deleted) != 1 || store.deleted[0] != "recordings/user-1/abc.webm" {
		t.Errorf("Expected deletion of namespaced key, got %v", store.deleted)
	}
}
