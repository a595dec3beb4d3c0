package auth

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"meetai/internal/avatar"
	"meetai/internal/session"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "session_id"

// defaultSessionMaxAge is one week, in seconds
const defaultSessionMaxAge = 7 * 24 * 3600

// Handler handles authentication-related HTTP requests
type Handler struct {
	service    Service
	sessionMgr session.Manager
}

// NewHandler creates a new authentication handler
func NewHandler(service Service, sessionMgr session.Manager) *Handler {
	return &Handler{
		service:    service,
		sessionMgr: sessionMgr,
	}
}

// SignUp handles POST /sign-up/email
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		if err == ErrEmailExists {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "email_taken",
				"message": "This email is already registered",
				"field":   "email",
			})
			return
		}
		log.Printf("Failed to sign up %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	h.issueSession(c, user)
}

// SignIn handles POST /sign-in/email
func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		if err == ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		log.Printf("Failed to sign in %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}

	h.issueSession(c, user)
}

// SignInSocial handles POST /sign-in/social
func (h *Handler) SignInSocial(c *gin.Context) {
	var req SocialSignInRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.SignInSocial(c.Request.Context(), req)
	if err != nil {
		log.Printf("Failed social sign-in via %s: %v", req.Provider, err)

		switch err {
		case ErrUnknownProvider:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported provider"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "sign-in with " + req.Provider + " failed"})
		}
		return
	}

	h.issueSession(c, user)
}

// SignOut handles POST /sign-out
func (h *Handler) SignOut(c *gin.Context) {
	token, err := c.Cookie(SessionCookieName)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "already signed out"})
		return
	}

	if err := h.sessionMgr.Delete(c.Request.Context(), token); err != nil {
		log.Printf("Failed to delete session: %v", err)
	}
	if err := h.service.DeleteSessionRecord(c.Request.Context(), token); err != nil {
		log.Printf("Failed to delete session record: %v", err)
	}

	clearSessionCookie(c)

	c.JSON(http.StatusOK, gin.H{"message": "signed out successfully"})
}

// GetSession handles GET /session
func (h *Handler) GetSession(c *gin.Context) {
	token, err := c.Cookie(SessionCookieName)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: no session cookie"})
		return
	}

	sess, err := h.sessionMgr.Get(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: invalid session"})
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), sess.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: user not found"})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		User: user,
		Session: SessionInfo{
			ID:        sess.ID,
			UserID:    sess.UserID,
			ExpiresAt: sess.ExpiresAt,
		},
	})
}

// RequestVerification handles POST /request-verification
func (h *Handler) RequestVerification(c *gin.Context) {
	var req RequestVerificationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.RequestVerification(c.Request.Context(), req.Email); err != nil {
		log.Printf("Failed to request verification for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "verification code sent to your email",
	})
}

// VerifyEmail handles POST /verify-email
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		log.Printf("Failed to verify email %s: %v", req.Email, err)

		switch err {
		case ErrInvalidCode:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid verification code"})
		case ErrUserNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify email"})
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// Avatar handles GET /avatar/:seed - deterministic SVG identicons
func (h *Handler) Avatar(c *gin.Context) {
	seed := strings.TrimSuffix(c.Param("seed"), ".svg")
	if seed == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seed is required"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.Data(http.StatusOK, "image/svg+xml", []byte(avatar.Render(seed)))
}

// UpdateUser handles PATCH /users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	// Set by the session middleware
	authUserID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Users can only update their own account
	if authUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden: cannot update another user's account"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), userID, req)
	if err != nil {
		log.Printf("Failed to update user %s: %v", userID, err)

		switch err {
		case ErrUserNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case ErrEmailExists:
			c.JSON(http.StatusConflict, gin.H{
				"error":   "email_taken",
				"message": "This email is already registered",
				"field":   "email",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	authUserID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Users can only delete their own account
	if authUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden: cannot delete another user's account"})
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), userID); err != nil {
		log.Printf("Failed to delete user %s: %v", userID, err)

		switch err {
		case ErrUserNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		}
		return
	}

	// Drop the current session as well
	if token, err := c.Cookie(SessionCookieName); err == nil {
		if err := h.sessionMgr.Delete(c.Request.Context(), token); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}

	clearSessionCookie(c)

	c.JSON(http.StatusOK, gin.H{
		"message": "account deleted successfully",
	})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "auth-service",
	})
}

// issueSession creates the Redis session and its Postgres record, sets the
// cookie and writes the auth response
func (h *Handler) issueSession(c *gin.Context, user *User) {
	maxAge := defaultSessionMaxAge
	if maxAgeStr := os.Getenv("SESSION_MAX_AGE"); maxAgeStr != "" {
		if parsed, err := strconv.Atoi(maxAgeStr); err == nil {
			maxAge = parsed
		}
	}

	sess, err := h.sessionMgr.Create(c.Request.Context(), session.CreateParams{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		MaxAge:    maxAge,
	})
	if err != nil {
		log.Printf("Failed to create session for user %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	if err := h.service.RecordSession(c.Request.Context(), sess); err != nil {
		log.Printf("Failed to record session for user %s: %v", user.ID, err)
	}

	secure := os.Getenv("APP_ENV") == "production"
	c.SetCookie(
		SessionCookieName,
		sess.Token,
		maxAge,
		"/",
		"",
		secure,
		true, // httpOnly
	)

	c.JSON(http.StatusOK, AuthResponse{
		User:  user,
		Token: sess.Token,
	})
}

func clearSessionCookie(c *gin.Context) {
	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
}
