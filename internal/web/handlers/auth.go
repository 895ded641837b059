package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/blogr/internal/auth"
	"github.com/saltyorg/blogr/internal/web/middleware"
)

// RegisterPage renders the registration form
func (h *Handlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "auth/register.html", "Register", nil)
}

// RegisterSubmit handles registration form submission
func (h *Handlers) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	_, err := h.authService.Register(r.Context(), username, password)
	switch {
	case err == nil:
		h.flash(w, "Registration complete, please log in")
		h.redirect(w, r, "/auth/login")
	case errors.Is(err, auth.ErrUsernameRequired):
		h.flashErr(w, "Username is required.")
		h.redirect(w, r, "/auth/register")
	case errors.Is(err, auth.ErrPasswordRequired):
		h.flashErr(w, "Password is required.")
		h.redirect(w, r, "/auth/register")
	case errors.Is(err, auth.ErrUserExists):
		h.flashErr(w, fmt.Sprintf("User %s is already registered.", username))
		h.redirect(w, r, "/auth/register")
	default:
		h.serverError(w, err, "Failed to register user")
	}
}

// LoginPage renders the login page
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r.Context()) != nil {
		h.redirect(w, r, "/")
		return
	}
	h.render(w, r, "auth/login.html", "Log In", nil)
}

// LoginSubmit handles login form submission
func (h *Handlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.authService.Authenticate(r.Context(), username, password)
	switch {
	case errors.Is(err, auth.ErrIncorrectUsername):
		h.flashErr(w, "Incorrect username.")
		h.redirect(w, r, "/auth/login")
		return
	case errors.Is(err, auth.ErrIncorrectPassword):
		h.flashErr(w, "Incorrect password.")
		h.redirect(w, r, "/auth/login")
		return
	case err != nil:
		h.serverError(w, err, "Authentication error")
		return
	}

	session, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, err, "Failed to create session")
		return
	}

	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
	}
	h.applyCookieSecurity(cookie)
	http.SetCookie(w, cookie)

	log.Info().Str("username", username).Msg("User logged in")
	h.redirect(w, r, "/")
}

// Logout handles user logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.authService.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.Debug().Err(err).Msg("Failed to delete session during logout")
		}
	}

	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
	h.applyCookieSecurity(cookie)
	http.SetCookie(w, cookie)

	h.redirect(w, r, "/")
}
