package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetai/internal/storage"
)

// ErrForbiddenKey indicates a recording key outside the caller's namespace
var ErrForbiddenKey = errors.New("recording key does not belong to this user")

// ErrStorageUnavailable indicates object storage is not configured
var ErrStorageUnavailable = errors.New("object storage is not configured")

// DefaultDownloadTTL is the default presigned download URL lifetime
const DefaultDownloadTTL = 15 * time.Minute

// Service handles business logic for voice chat
type Service struct {
	backend BackendClient
	storage storage.Service
}

// NewService creates a new voice service
func NewService(backend BackendClient, store storage.Service) *Service {
	return &Service{
		backend: backend,
		storage: store,
	}
}

// VoiceChat archives the recording and forwards it to the voice pipeline.
// Archival is best-effort: a storage outage must not break the conversation.
// Returns the backend's audio reply and the storage key of the archived upload.
func (s *Service) VoiceChat(ctx context.Context, userID, agentName, persona, filename string, audio []byte) (*Reply, string, error) {
	key := s.recordingKey(userID, filename)

	if s.storage != nil {
		contentType := contentTypeForFilename(filename)
		if err := s.storage.Upload(ctx, key, contentType, bytes.NewReader(audio)); err != nil {
			log.Printf("Warning: failed to archive recording %s: %v", key, err)
			key = ""
		}
	} else {
		key = ""
	}

	reply, err := s.backend.VoiceChat(ctx, audio, filename, agentName, persona)
	if err != nil {
		return nil, key, err
	}

	return reply, key, nil
}

// UploadURL issues a presigned upload URL so clients can push a recording
// straight to object storage, inside their own namespace
func (s *Service) UploadURL(ctx context.Context, userID, filename, contentType string, ttl time.Duration) (string, string, error) {
	if s.storage == nil {
		return "", "", ErrStorageUnavailable
	}
	if contentType == "" {
		contentType = contentTypeForFilename(filename)
	}
	if ttl <= 0 {
		ttl = DefaultDownloadTTL
	}

	key := s.recordingKey(userID, filename)
	url, err := s.storage.GeneratePresignedUploadURL(ctx, key, contentType, ttl)
	if err != nil {
		return "", "", err
	}

	return url, key, nil
}

// DownloadURL issues a presigned download URL for an archived recording
func (s *Service) DownloadURL(ctx context.Context, userID, key string, ttl time.Duration) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	if !s.ownsKey(userID, key) {
		return "", ErrForbiddenKey
	}
	if ttl <= 0 {
		ttl = DefaultDownloadTTL
	}

	return s.storage.GeneratePresignedDownloadURL(ctx, key, ttl)
}

// DeleteRecording removes an archived recording
func (s *Service) DeleteRecording(ctx context.Context, userID, key string) error {
	if s.storage == nil {
		return ErrStorageUnavailable
	}
	if !s.ownsKey(userID, key) {
		return ErrForbiddenKey
	}

	return s.storage.DeleteFile(ctx, key)
}

// StorageHealth reports whether object storage is reachable
func (s *Service) StorageHealth(ctx context.Context) error {
	if s.storage == nil {
		return errors.New("storage not configured")
	}
	return s.storage.Health(ctx)
}

// recordingKey namespaces archived recordings per user
func (s *Service) recordingKey(userID, filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".webm"
	}
	return fmt.Sprintf("recordings/%s/%s%s", userID, uuid.New().String(), ext)
}

// ownsKey checks the key sits inside the caller's recordings namespace
func (s *Service) ownsKey(userID, key string) bool {
	return strings.HasPrefix(key, fmt.Sprintf("recordings/%s/", userID))
}

func contentTypeForFilename(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/webm"
	}
}
