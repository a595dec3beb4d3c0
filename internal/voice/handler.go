package voice

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for voice chat
type Handler struct {
	service *Service
}

// NewHandler creates a new voice handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// VoiceChat handles POST /voicechat.
// Multipart form: file (audio blob), agentname, persona.
// Streams the synthesized audio/wav reply back to the caller.
func (h *Handler) VoiceChat(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	// Bound the whole request body before parsing the form. The cap leaves
	// headroom above the file limit so an oversized recording still parses
	// and reports 413 instead of a generic 400.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+maxFormOverheadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Success: false,
				Error:   "Recording exceeds the 25 MB upload limit",
			})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Missing or invalid audio file",
		})
		return
	}

	agentName := c.PostForm("agentname")
	persona := c.PostForm("persona")
	if agentName == "" || persona == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "agentname and persona fields are required",
		})
		return
	}

	if fileHeader.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Success: false,
			Error:   "Recording exceeds the 25 MB upload limit",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Failed to read audio file",
		})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Failed to read audio file",
		})
		return
	}

	reply, key, err := h.service.VoiceChat(c.Request.Context(), userID, agentName, persona, fileHeader.Filename, audio)
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Success: false,
				Error:   "The voice agent is unavailable right now. Please try again later.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to process voice message",
		})
		return
	}
	defer reply.Body.Close()

	if key != "" {
		c.Header("X-Recording-Key", key)
	}
	c.Header("Content-Type", reply.ContentType)
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reply.Body); err != nil {
		// Response already started, nothing to do but log via gin's recovery path
		return
	}
}

// UploadURL handles POST /recordings/upload-url
func (h *Handler) UploadURL(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	ttl := time.Duration(req.TTLMinute) * time.Minute

	url, key, err := h.service.UploadURL(c.Request.Context(), userID, req.Filename, req.ContentType, ttl)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Success: false,
				Error:   "Recording storage is unavailable",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to generate upload URL",
		})
		return
	}

	c.JSON(http.StatusOK, UploadURLResponse{
		Success: true,
		URL:     url,
		Key:     key,
	})
}

// DownloadURL handles POST /recordings/download-url
func (h *Handler) DownloadURL(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	var req DownloadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	ttl := DefaultDownloadTTL
	if req.TTLMinute > 0 {
		ttl = time.Duration(req.TTLMinute) * time.Minute
	}

	url, err := h.service.DownloadURL(c.Request.Context(), userID, req.Key, ttl)
	if err != nil {
		if errors.Is(err, ErrForbiddenKey) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Success: false,
				Error:   "You are not authorized to access this recording",
			})
			return
		}
		if errors.Is(err, ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Success: false,
				Error:   "Recording storage is unavailable",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to generate download URL",
		})
		return
	}

	c.JSON(http.StatusOK, DownloadURLResponse{
		Success: true,
		URL:     url,
		Key:     req.Key,
	})
}

// DeleteRecording handles DELETE /recordings/*key
func (h *Handler) DeleteRecording(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Success: false,
			Error:   "Unauthorized: user not authenticated",
		})
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Recording key is required",
		})
		return
	}

	if err := h.service.DeleteRecording(c.Request.Context(), userID, key); err != nil {
		if errors.Is(err, ErrForbiddenKey) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Success: false,
				Error:   "You are not authorized to delete this recording",
			})
			return
		}
		if errors.Is(err, ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Success: false,
				Error:   "Recording storage is unavailable",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Failed to delete recording",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Recording deleted successfully",
	})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	storageStatus := "connected"
	if err := h.service.StorageHealth(c.Request.Context()); err != nil {
		storageStatus = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "voice-service",
		"storage": storageStatus,
	})
}
