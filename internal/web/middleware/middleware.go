package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/blogr/internal/auth"
	"github.com/saltyorg/blogr/internal/database"
)

type contextKey string

const (
	// UserContextKey is the context key for the logged-in user
	UserContextKey contextKey = "user"
	// SessionContextKey is the context key for the session
	SessionContextKey contextKey = "session"

	// SessionCookie is the name of the session cookie
	SessionCookie = "session"
)

// Lifecycle creates and tears down per-request application contexts
type Lifecycle interface {
	Context(parent context.Context) (context.Context, *database.Scope)
	Teardown(ctx context.Context, err error)
}

// Logger is a middleware that logs requests
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// Scoped gives every request its own application context and tears it down
// when the handler returns. A panic is passed to teardown as the error and
// then re-raised for the recoverer.
func Scoped(lc Lifecycle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := lc.Context(r.Context())

			defer func() {
				if rec := recover(); rec != nil {
					lc.Teardown(ctx, fmt.Errorf("panic: %v", rec))
					panic(rec)
				}
				lc.Teardown(ctx, nil)
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadUser looks up the user behind the session cookie, if any, and stores it
// in the request context. Anonymous requests pass through untouched and never
// touch the database.
func LoadUser(authService *auth.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			session, err := authService.GetSession(ctx, cookie.Value)
			if err != nil {
				log.Error().Err(err).Msg("Failed to get session")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if session == nil {
				// Clear invalid cookie
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
				})
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.GetUser(ctx, session.UserID)
			if err != nil {
				log.Error().Err(err).Msg("Failed to get user")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Extend session on activity
			if err := authService.ExtendSession(ctx, session.ID); err != nil {
				log.Warn().Err(err).Msg("Failed to extend session")
			}

			ctx = context.WithValue(ctx, UserContextKey, user)
			ctx = context.WithValue(ctx, SessionContextKey, session)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoginRequired redirects anonymous requests to the login page
func LoginRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser retrieves the user from context
func GetUser(ctx context.Context) *database.User {
	user, ok := ctx.Value(UserContextKey).(*database.User)
	if !ok {
		return nil
	}
	return user
}

// AllowSubnet is a middleware that restricts access to connections from within the allowed subnet.
// This checks the actual connection source (RemoteAddr), useful for whitelisting reverse proxies.
func AllowSubnet(allowedNet *net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// If no subnet restriction, allow all
			if allowedNet == nil {
				next.ServeHTTP(w, r)
				return
			}

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				// Maybe it's just an IP without port
				host = r.RemoteAddr
			}

			ip := net.ParseIP(host)
			if ip == nil {
				log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Could not parse remote address")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			if !allowedNet.Contains(ip) {
				log.Warn().
					Str("remote_addr", r.RemoteAddr).
					Str("allowed_subnet", allowedNet.String()).
					Msg("Connection rejected: source IP not in allowed subnet")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
