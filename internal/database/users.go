package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User represents a registered author.
type User struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Password string `db:"password"`
}

// CreateUser inserts a new user record. password must already be hashed.
func (c *Conn) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	result, err := c.ExecContext(ctx, `
		INSERT INTO user (username, password) VALUES (?, ?)
	`, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return &User{
		ID:       id,
		Username: username,
		Password: passwordHash,
	}, nil
}

// GetUserByUsername retrieves a user by username. Returns nil if not found.
func (c *Conn) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := c.GetContext(ctx, user, "SELECT id, username, password FROM user WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID. Returns nil if not found.
func (c *Conn) GetUserByID(ctx context.Context, id int64) (*User, error) {
	user := &User{}
	err := c.GetContext(ctx, user, "SELECT id, username, password FROM user WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UserExists reports whether username is taken.
func (c *Conn) UserExists(ctx context.Context, username string) (bool, error) {
	var count int
	if err := c.GetContext(ctx, &count, "SELECT COUNT(*) FROM user WHERE username = ?", username); err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}
