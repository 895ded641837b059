package database

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoScope is returned when a context carries no Scope
	ErrNoScope = errors.New("database: no scope in context")
	// ErrScopeClosed is returned when a torn-down Scope is asked for a connection
	ErrScopeClosed = errors.New("database: scope is closed")
)

type scopeKey struct{}

// Scope holds the database connection of one HTTP request or CLI command.
// The connection is opened on first use and closed by Teardown.
// A Scope is used by a single goroutine and is not safe for concurrent use.
type Scope struct {
	path   string
	conn   *Conn
	closed bool
}

// NewScope returns an empty scope for the database file at path.
func NewScope(path string) *Scope {
	return &Scope{path: path}
}

// Conn returns the scope's connection, opening it on first call.
// Every call within the same scope returns the same *Conn.
func (s *Scope) Conn() (*Conn, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	if s.conn == nil {
		conn, err := Open(s.path)
		if err != nil {
			return nil, err
		}
		s.conn = conn
	}
	return s.conn, nil
}

// Opened reports whether the scope currently holds an open connection.
func (s *Scope) Opened() bool {
	return s != nil && s.conn != nil
}

// Teardown closes the connection if one was opened and marks the scope closed.
// It is safe to call on a scope that never opened a connection, and more than once.
// cause is the error that ended the scope, if any; it is only logged.
func (s *Scope) Teardown(cause error) {
	if s == nil {
		return
	}
	s.closed = true

	conn := s.conn
	s.conn = nil
	if conn == nil {
		return
	}

	if err := conn.Close(); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Failed to close database connection")
	}

	if cause != nil {
		log.Debug().Err(cause).Str("path", s.path).Msg("Database connection closed after error")
		return
	}
	log.Trace().Str("path", s.path).Msg("Database connection closed")
}

// WithScope returns a copy of ctx that carries s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the scope stored in ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Get returns the connection of the scope carried by ctx, opening it if needed.
func Get(ctx context.Context) (*Conn, error) {
	s := ScopeFrom(ctx)
	if s == nil {
		return nil, ErrNoScope
	}
	return s.Conn()
}

// Teardown tears down the scope carried by ctx, if any.
func Teardown(ctx context.Context, cause error) {
	ScopeFrom(ctx).Teardown(cause)
}
