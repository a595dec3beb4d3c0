// Package auth implements email/password and social authentication for MeetAI.
// It owns the user, session, account and verification records in Postgres and
// issues Redis-backed sessions through the shared session manager.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"meetai/internal/avatar"
	"meetai/internal/database"
	"meetai/internal/email"
	"meetai/internal/password"
	"meetai/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// VerificationCodeTTL defines how long verification codes remain valid
	VerificationCodeTTL = 10 * time.Minute
)

var (
	// ErrInvalidCredentials is returned when email or password is wrong.
	// The same error covers both cases so callers cannot probe for accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists is returned when the email is already registered
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound is returned when user is not found
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCode is returned when a verification code is invalid or expired
	ErrInvalidCode = errors.New("invalid or expired verification code")
	// ErrUnauthorized is returned when user is not authorized for the action
	ErrUnauthorized = errors.New("unauthorized action")
)

// EventPublisher publishes email events to the message broker.
// Sync waits for broker acknowledgement and is used when the user is
// actively waiting on the email, like a verification code.
type EventPublisher interface {
	PublishEmailEvent(topic string, event interface{}) error
	PublishEmailEventSync(topic string, event interface{}) error
}

// Service defines the authentication service interface
type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*User, error)
	SignIn(ctx context.Context, req SignInRequest) (*User, error)
	SignInSocial(ctx context.Context, req SocialSignInRequest) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	UpdateUser(ctx context.Context, userID string, updates UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, userID string) error
	RequestVerification(ctx context.Context, emailAddr string) error
	VerifyEmail(ctx context.Context, emailAddr, code string) (*User, error)
	RecordSession(ctx context.Context, sess *session.Session) error
	DeleteSessionRecord(ctx context.Context, token string) error
}

// service implements the Service interface
type service struct {
	db          database.Service
	emailSender email.Sender
	publisher   EventPublisher
	emailTopic  string
	providers   map[string]Provider
	oauth       ProviderClient
}

// NewService creates a new authentication service that sends emails directly
func NewService(db database.Service, emailSender email.Sender, providers map[string]Provider, oauth ProviderClient) Service {
	return &service{
		db:          db,
		emailSender: emailSender,
		providers:   providers,
		oauth:       oauth,
	}
}

// NewServiceWithPublisher creates an authentication service that publishes
// email events to Kafka instead of sending them inline
func NewServiceWithPublisher(db database.Service, emailSender email.Sender, providers map[string]Provider, oauth ProviderClient, publisher EventPublisher, emailTopic string) Service {
	return &service{
		db:          db,
		emailSender: emailSender,
		publisher:   publisher,
		emailTopic:  emailTopic,
		providers:   providers,
		oauth:       oauth,
	}
}

// SignUp registers a new user with a credential account
func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Image:     avatar.URL(req.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	const userQuery = `
		INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.Exec(ctx, userQuery, user.ID, user.Name, user.Email, false, user.Image, user.CreatedAt, user.UpdatedAt); err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	const accountQuery = `
		INSERT INTO accounts (id, account_id, provider_id, user_id, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.Exec(ctx, accountQuery, uuid.New().String(), user.Email, ProviderCredential, user.ID, hash, now, now); err != nil {
		return nil, fmt.Errorf("create credential account: %w", err)
	}

	log.Printf("Created new user: %s (ID: %s)", user.Email, user.ID)

	// Verification email is best effort; the account works without it
	if err := s.RequestVerification(ctx, user.Email); err != nil {
		log.Printf("Warning: failed to send verification email to %s: %v", user.Email, err)
	}

	return user, nil
}

// SignIn authenticates a user against their credential account
func (s *service) SignIn(ctx context.Context, req SignInRequest) (*User, error) {
	user, err := s.getUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	const query = `
		SELECT password FROM accounts
		WHERE user_id = $1 AND provider_id = $2
	`
	var hash string
	if err := s.db.QueryRow(ctx, query, user.ID, ProviderCredential).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// social-only user; no password to check
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load credential account: %w", err)
	}

	ok, err := password.Verify(req.Password, hash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// SignInSocial exchanges an OAuth authorization code and provisions or links
// the provider account. An existing user with the same email is linked rather
// than duplicated.
func (s *service) SignInSocial(ctx context.Context, req SocialSignInRequest) (*User, error) {
	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	token, err := s.oauth.Exchange(ctx, provider, req.Code, req.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("exchange code with %s: %w", provider.ID, err)
	}

	profile, err := s.oauth.UserInfo(ctx, provider, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch %s profile: %w", provider.ID, err)
	}

	// Returning social user: account already linked
	if user, err := s.getUserByAccount(ctx, provider.ID, profile.Subject); err == nil {
		s.refreshAccountTokens(ctx, provider.ID, profile.Subject, token)
		return user, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Link to an existing user with the same email, or create a fresh one
	user, err := s.getUserByEmail(ctx, profile.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		user, err = s.createSocialUser(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var expiresAt *time.Time
	if token.ExpiresIn > 0 {
		t := now.Add(time.Duration(token.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	const accountQuery = `
		INSERT INTO accounts (id, account_id, provider_id, user_id, access_token, refresh_token, id_token, access_token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := s.db.Exec(ctx, accountQuery, uuid.New().String(), profile.Subject, provider.ID, user.ID,
		token.AccessToken, token.RefreshToken, token.IDToken, expiresAt, now, now); err != nil {
		return nil, fmt.Errorf("link %s account: %w", provider.ID, err)
	}

	log.Printf("Linked %s account for user %s (ID: %s)", provider.ID, user.Email, user.ID)

	return user, nil
}

// createSocialUser provisions a user from a provider profile.
// The provider already verified the email, so the flag starts true.
func (s *service) createSocialUser(ctx context.Context, profile *ProviderProfile) (*User, error) {
	if profile.Email == "" {
		return nil, fmt.Errorf("provider profile has no email")
	}

	image := profile.Picture
	if image == "" {
		image = avatar.URL(profile.Email)
	}

	now := time.Now()
	user := &User{
		ID:            uuid.New().String(),
		Name:          profile.Name,
		Email:         profile.Email,
		EmailVerified: true,
		Image:         image,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if user.Name == "" {
		user.Name = profile.Email
	}

	const query = `
		INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.Exec(ctx, query, user.ID, user.Name, user.Email, user.EmailVerified, user.Image, user.CreatedAt, user.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create social user: %w", err)
	}

	// Queue the welcome email; sign-in does not depend on it
	s.dispatchEmail(email.EmailEvent{
		MessageID: uuid.New().String(),
		EventType: email.EmailTypeWelcome,
		Timestamp: now,
		Recipient: user.Email,
		Data:      map[string]interface{}{"name": user.Name},
	})

	log.Printf("Created new social user: %s (ID: %s)", user.Email, user.ID)

	return user, nil
}

// refreshAccountTokens stores the newest provider tokens, best effort
func (s *service) refreshAccountTokens(ctx context.Context, providerID, accountID string, token *ProviderToken) {
	const query = `
		UPDATE accounts
		SET access_token = $1, refresh_token = $2, id_token = $3, updated_at = $4
		WHERE provider_id = $5 AND account_id = $6
	`
	if _, err := s.db.Exec(ctx, query, token.AccessToken, token.RefreshToken, token.IDToken, time.Now(), providerID, accountID); err != nil {
		log.Printf("Warning: failed to refresh %s tokens for %s: %v", providerID, accountID, err)
	}
}

// RequestVerification creates a verification record and dispatches the code email
func (s *service) RequestVerification(ctx context.Context, emailAddr string) error {
	code := generateSixDigitCode()
	now := time.Now()

	// One active code per identifier
	if _, err := s.db.Exec(ctx, `DELETE FROM verifications WHERE identifier = $1`, emailAddr); err != nil {
		return fmt.Errorf("clear stale verifications: %w", err)
	}

	const query = `
		INSERT INTO verifications (id, identifier, value, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.Exec(ctx, query, uuid.New().String(), emailAddr, code, now.Add(VerificationCodeTTL), now, now); err != nil {
		return fmt.Errorf("store verification: %w", err)
	}

	s.dispatchEmail(email.EmailEvent{
		MessageID: uuid.New().String(),
		EventType: email.EmailTypeVerificationCode,
		Timestamp: now,
		Recipient: emailAddr,
		Data: map[string]interface{}{
			"code":       code,
			"expires_in": VerificationCodeTTL.String(),
		},
	})

	return nil
}

// VerifyEmail consumes a verification code and marks the user's email verified
func (s *service) VerifyEmail(ctx context.Context, emailAddr, code string) (*User, error) {
	const query = `
		SELECT id, value, expires_at FROM verifications
		WHERE identifier = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var id, value string
	var expiresAt time.Time
	if err := s.db.QueryRow(ctx, query, emailAddr).Scan(&id, &value, &expiresAt); err != nil {
		return nil, ErrInvalidCode
	}

	if value != code || time.Now().After(expiresAt) {
		return nil, ErrInvalidCode
	}

	// Codes are single-use
	if _, err := s.db.Exec(ctx, `DELETE FROM verifications WHERE id = $1`, id); err != nil {
		log.Printf("Warning: failed to delete verification %s: %v", id, err)
	}

	const update = `
		UPDATE users
		SET email_verified = TRUE, updated_at = $1
		WHERE email = $2
		RETURNING id, name, email, email_verified, COALESCE(image, ''), created_at, updated_at
	`
	var user User
	row := s.db.QueryRow(ctx, update, time.Now(), emailAddr)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.EmailVerified, &user.Image, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("mark email verified: %w", err)
	}

	log.Printf("Verified email for user: %s (ID: %s)", user.Email, user.ID)

	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	const query = `
		SELECT id, name, email, email_verified, COALESCE(image, ''), created_at, updated_at
		FROM users WHERE id = $1
	`
	var user User
	row := s.db.QueryRow(ctx, query, userID)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.EmailVerified, &user.Image, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// UpdateUser updates profile fields (name, email, image)
func (s *service) UpdateUser(ctx context.Context, userID string, updates UpdateUserRequest) (*User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Build dynamic update query based on provided fields
	updateFields := []string{}
	args := []interface{}{}
	argCount := 1

	if updates.Name != nil {
		updateFields = append(updateFields, fmt.Sprintf("name = $%d", argCount))
		args = append(args, *updates.Name)
		argCount++
	}

	if updates.Email != nil && *updates.Email != user.Email {
		// Changing email resets verification
		updateFields = append(updateFields,
			fmt.Sprintf("email = $%d", argCount),
			"email_verified = FALSE")
		args = append(args, *updates.Email)
		argCount++
	}

	if updates.Image != nil {
		updateFields = append(updateFields, fmt.Sprintf("image = $%d", argCount))
		args = append(args, *updates.Image)
		argCount++
	}

	if len(updateFields) == 0 {
		return user, nil
	}

	updateFields = append(updateFields, fmt.Sprintf("updated_at = $%d", argCount))
	args = append(args, time.Now())
	argCount++

	args = append(args, userID)

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING id, name, email, email_verified, COALESCE(image, ''), created_at, updated_at
	`, joinStrings(updateFields, ", "), argCount)

	var updated User
	row := s.db.QueryRow(ctx, query, args...)
	if err := row.Scan(&updated.ID, &updated.Name, &updated.Email, &updated.EmailVerified, &updated.Image, &updated.CreatedAt, &updated.UpdatedAt); err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	log.Printf("Updated user: %s (ID: %s)", updated.Email, updated.ID)

	return &updated, nil
}

// DeleteUser removes a user; accounts and sessions cascade in the schema.
// Agent and transcript rows belong to the other services and stay behind,
// unreachable once the gateway stops issuing the user's ID.
func (s *service) DeleteUser(ctx context.Context, userID string) error {
	affected, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	log.Printf("Deleted user ID: %s", userID)

	return nil
}

// RecordSession persists the canonical session row alongside the Redis entry
func (s *service) RecordSession(ctx context.Context, sess *session.Session) error {
	const query = `
		INSERT INTO sessions (id, token, user_id, ip_address, user_agent, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	if _, err := s.db.Exec(ctx, query, sess.ID, sess.Token, sess.UserID, sess.IPAddress, sess.UserAgent, sess.ExpiresAt, sess.CreatedAt); err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// DeleteSessionRecord removes the Postgres session row for a token
func (s *service) DeleteSessionRecord(ctx context.Context, token string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	return nil
}

// getUserByEmail retrieves a user by email
func (s *service) getUserByEmail(ctx context.Context, emailAddr string) (*User, error) {
	const query = `
		SELECT id, name, email, email_verified, COALESCE(image, ''), created_at, updated_at
		FROM users WHERE email = $1
	`
	var user User
	row := s.db.QueryRow(ctx, query, emailAddr)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.EmailVerified, &user.Image, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}

	return &user, nil
}

// getUserByAccount retrieves the user owning a provider account
func (s *service) getUserByAccount(ctx context.Context, providerID, accountID string) (*User, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.email_verified, COALESCE(u.image, ''), u.created_at, u.updated_at
		FROM users u
		JOIN accounts a ON a.user_id = u.id
		WHERE a.provider_id = $1 AND a.account_id = $2
	`
	var user User
	row := s.db.QueryRow(ctx, query, providerID, accountID)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.EmailVerified, &user.Image, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}

	return &user, nil
}

// dispatchEmail routes an email event through Kafka when a publisher is
// configured, falling back to the direct sender. Verification codes publish
// synchronously so a lost code surfaces here rather than at the user.
func (s *service) dispatchEmail(event email.EmailEvent) {
	if s.publisher != nil {
		var err error
		if event.EventType == email.EmailTypeVerificationCode {
			err = s.publisher.PublishEmailEventSync(s.emailTopic, event)
		} else {
			err = s.publisher.PublishEmailEvent(s.emailTopic, event)
		}
		if err == nil {
			return
		}
		log.Printf("Warning: failed to publish email event, sending directly: %v", err)
	}

	if err := s.emailSender.SendEmailEvent(event); err != nil {
		log.Printf("Warning: failed to send %s email to %s: %v", event.EventType, event.Recipient, err)
	}
}

// generateSixDigitCode generates a cryptographically secure random 6-digit verification code
func generateSixDigitCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand failing means the platform is broken
		panic(fmt.Sprintf("failed to generate secure random number: %v", err))
	}
	code := int(n.Int64()) + 100000
	return fmt.Sprintf("%06d", code)
}

// joinStrings joins a slice of strings with a separator
func joinStrings(strs []string, sep string) string {
	if len(strs) == 0 {
		return ""
	}
	result := strs[0]
	for i := 1; i < len(strs); i++ {
		result += sep + strs[i]
	}
	return result
}

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return contains(errMsg, "duplicate key value violates unique constraint") &&
		contains(errMsg, constraintName)
}

// contains checks if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && findSubstring(s, substr) >= 0
}

// findSubstring finds the index of a substring in a string
func findSubstring(s, substr string) int {
	if len(substr) == 0 {
		return 0
	}
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
