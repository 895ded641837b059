package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session represents a logged-in browser session.
type Session struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// CreateSession inserts a new session record.
func (c *Conn) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) (*Session, error) {
	now := time.Now().UTC()
	expiresAt = expiresAt.UTC()
	_, err := c.ExecContext(ctx, `
		INSERT INTO session (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, id, userID, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// GetSession retrieves a session by ID. Returns nil if not found.
func (c *Conn) GetSession(ctx context.Context, id string) (*Session, error) {
	session := &Session{}
	err := c.GetContext(ctx, session, `
		SELECT id, user_id, expires_at, created_at
		FROM session WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ExtendSession updates a session's expiration time.
func (c *Conn) ExtendSession(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := c.ExecContext(ctx, "UPDATE session SET expires_at = ? WHERE id = ?", expiresAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

// DeleteSession removes a session by ID.
func (c *Conn) DeleteSession(ctx context.Context, id string) error {
	_, err := c.ExecContext(ctx, "DELETE FROM session WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now and returns how many were removed.
func (c *Conn) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := c.ExecContext(ctx, "DELETE FROM session WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
