package auth

import "time"

// User represents a registered user
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Image         string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Account links a user to an authentication method. Credential accounts
// store the password hash; social accounts store the provider tokens.
type Account struct {
	ID                   string     `json:"id"`
	AccountID            string     `json:"account_id"`
	ProviderID           string     `json:"provider_id"`
	UserID               string     `json:"user_id"`
	AccessToken          string     `json:"-"`
	RefreshToken         string     `json:"-"`
	IDToken              string     `json:"-"`
	AccessTokenExpiresAt *time.Time `json:"-"`
	Password             string     `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Verification is a pending email verification record
type Verification struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Value      string    `json:"value"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProviderID values for account records
const (
	ProviderCredential = "credential"
	ProviderGoogle     = "google"
	ProviderGitHub     = "github"
)

// SignUpRequest is the payload for POST /sign-up/email
type SignUpRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// SignInRequest is the payload for POST /sign-in/email
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SocialSignInRequest is the payload for POST /sign-in/social
type SocialSignInRequest struct {
	Provider    string `json:"provider" binding:"required,oneof=google github"`
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri" binding:"required,url"`
}

// VerifyEmailRequest is the payload for POST /verify-email
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

// RequestVerificationRequest is the payload for POST /request-verification
type RequestVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdateUserRequest is the payload for PATCH /users/:id
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Email *string `json:"email,omitempty" binding:"omitempty,email"`
	Image *string `json:"image,omitempty" binding:"omitempty,max=2048"`
}

// AuthResponse is returned after a successful sign-in or sign-up
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// SessionResponse is returned by GET /session
type SessionResponse struct {
	User    *User       `json:"user"`
	Session SessionInfo `json:"session"`
}

// SessionInfo is the session projection exposed to clients
type SessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
