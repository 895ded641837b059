package handlers

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/blogr/internal/auth"
	"github.com/saltyorg/blogr/internal/database"
	"github.com/saltyorg/blogr/internal/web/middleware"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	templates   map[string]*template.Template
	authService *auth.AuthService
	isDev       bool
}

// New creates a new Handlers instance
func New(templates map[string]*template.Template, authService *auth.AuthService, isDev bool) *Handlers {
	return &Handlers{
		templates:   templates,
		authService: authService,
		isDev:       isDev,
	}
}

// PageData contains common data for all pages
type PageData struct {
	Title    string
	User     *database.User
	Flash    string
	FlashErr string
	Content  any
}

// render renders a template with common data
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	h.renderPage(w, r, name, title, "", data)
}

// renderError renders a template with an inline error instead of a flash cookie
func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, name, title, message string, data any) {
	h.renderPage(w, r, name, title, message, data)
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, name, title, errMsg string, data any) {
	pageData := PageData{
		Title:    title,
		User:     middleware.GetUser(r.Context()),
		FlashErr: errMsg,
		Content:  data,
	}

	// Check for flash messages in cookies
	if cookie, err := r.Cookie("flash"); err == nil {
		pageData.Flash = cookie.Value
		clear := &http.Cookie{Name: "flash", MaxAge: -1, Path: "/"}
		h.applyCookieSecurity(clear)
		http.SetCookie(w, clear)
	}
	if cookie, err := r.Cookie("flash_err"); err == nil {
		if pageData.FlashErr == "" {
			pageData.FlashErr = cookie.Value
		}
		clear := &http.Cookie{Name: "flash_err", MaxAge: -1, Path: "/"}
		h.applyCookieSecurity(clear)
		http.SetCookie(w, clear)
	}

	tmpl, ok := h.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("Template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", pageData); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// flash sets a flash message
func (h *Handlers) flash(w http.ResponseWriter, message string) {
	c := &http.Cookie{
		Name:     "flash",
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	}
	h.applyCookieSecurity(c)
	http.SetCookie(w, c)
}

// flashErr sets an error flash message
func (h *Handlers) flashErr(w http.ResponseWriter, message string) {
	c := &http.Cookie{
		Name:     "flash_err",
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	}
	h.applyCookieSecurity(c)
	http.SetCookie(w, c)
}

// redirect redirects to a URL
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// serverError logs err and answers 500
func (h *Handlers) serverError(w http.ResponseWriter, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// applyCookieSecurity sets Secure/SameSite defaults based on environment.
func (h *Handlers) applyCookieSecurity(c *http.Cookie) {
	if h.isDev {
		if c.SameSite == 0 {
			c.SameSite = http.SameSiteLaxMode
		}
		return
	}
	c.Secure = true
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteStrictMode
	}
}

// Hello is a plain liveness page
func (h *Handlers) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello, World!"))
}
