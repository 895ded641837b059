package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/saltyorg/blogr/internal/database"
)

const (
	// SessionDuration is how long sessions last by default
	SessionDuration = 7 * 24 * time.Hour // 7 days
	// BcryptCost is the default bcrypt cost factor
	BcryptCost = 12
)

var (
	ErrUsernameRequired  = errors.New("username is required")
	ErrPasswordRequired  = errors.New("password is required")
	ErrUserExists        = errors.New("user is already registered")
	ErrIncorrectUsername = errors.New("incorrect username")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// AuthService handles registration, login and sessions.
// Every call works on the connection of the scope carried by ctx.
type AuthService struct {
	sessionDuration time.Duration
	cost            int
}

// NewAuthService creates a new auth service. Zero values select the defaults.
func NewAuthService(sessionDuration time.Duration, cost int) *AuthService {
	if sessionDuration <= 0 {
		sessionDuration = SessionDuration
	}
	if cost == 0 {
		cost = BcryptCost
	}
	return &AuthService{
		sessionDuration: sessionDuration,
		cost:            cost,
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, username, password string) (*database.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	conn, err := database.Get(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := conn.UserExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	user, err := conn.CreateUser(ctx, username, hash)
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", username).Msg("User registered")
	return user, nil
}

// Authenticate verifies credentials and returns the user
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*database.User, error) {
	conn, err := database.Get(ctx)
	if err != nil {
		return nil, err
	}

	user, err := conn.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrIncorrectUsername
	}
	if !CheckPassword(password, user.Password) {
		return nil, ErrIncorrectPassword
	}
	return user, nil
}

// GetUser retrieves a user by ID. Returns nil if not found.
func (s *AuthService) GetUser(ctx context.Context, id int64) (*database.User, error) {
	conn, err := database.Get(ctx)
	if err != nil {
		return nil, err
	}
	return conn.GetUserByID(ctx, id)
}

// CreateSession creates a new session for a user
func (s *AuthService) CreateSession(ctx context.Context, userID int64) (*database.Session, error) {
	conn, err := database.Get(ctx)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	return conn.CreateSession(ctx, id.String(), userID, time.Now().Add(s.sessionDuration))
}

// GetSession retrieves a live session by ID.
// Expired sessions are deleted and reported as nil.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*database.Session, error) {
	conn, err := database.Get(ctx)
	if err != nil {
		return nil, err
	}

	session, err := conn.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		if err := conn.DeleteSession(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, nil
	}

	return session, nil
}

// ExtendSession extends a session's expiration
func (s *AuthService) ExtendSession(ctx context.Context, sessionID string) error {
	conn, err := database.Get(ctx)
	if err != nil {
		return err
	}
	return conn.ExtendSession(ctx, sessionID, time.Now().Add(s.sessionDuration))
}

// DeleteSession removes a session
func (s *AuthService) DeleteSession(ctx context.Context, sessionID string) error {
	conn, err := database.Get(ctx)
	if err != nil {
		return err
	}
	return conn.DeleteSession(ctx, sessionID)
}

// SessionDuration returns how long new and extended sessions last.
func (s *AuthService) SessionDuration() time.Duration {
	return s.sessionDuration
}
