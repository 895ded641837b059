package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/blogr/internal/app"
	"github.com/saltyorg/blogr/internal/web/handlers"
	"github.com/saltyorg/blogr/internal/web/middleware"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server represents the web server
type Server struct {
	app       *app.App
	router    *chi.Mux
	templates map[string]*template.Template
	handlers  *handlers.Handlers
}

// NewServer creates a new web server for a prepared application
func NewServer(a *app.App) (*Server, error) {
	s := &Server{
		app:    a,
		router: chi.NewRouter(),
	}

	if err := s.loadTemplates(); err != nil {
		return nil, err
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// templateFuncMap returns the common template functions
func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
	}
}

// loadTemplates loads all HTML templates
// Each page template is parsed together with the base template
func (s *Server) loadTemplates() error {
	s.templates = make(map[string]*template.Template)
	funcMap := templateFuncMap()

	pageTemplates := []string{
		"auth/register.html",
		"auth/login.html",
		"blog/index.html",
		"blog/create.html",
		"blog/update.html",
	}

	for _, page := range pageTemplates {
		tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS,
			"templates/base.html",
			"templates/"+page,
		)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		s.templates[page] = tmpl
	}
	return nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() error {
	r := s.router
	cfg := s.app.Config()

	allowedNet, err := cfg.AllowedNet()
	if err != nil {
		return err
	}

	r.Use(chimiddleware.RequestID)
	// AllowSubnet must come BEFORE RealIP so we check the actual connection source
	r.Use(middleware.AllowSubnet(allowedNet))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Static files never need a database scope
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("failed to setup static files: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	h := handlers.New(s.templates, s.app.Auth(), cfg.Dev)
	s.handlers = h

	r.Group(func(r chi.Router) {
		r.Use(middleware.Scoped(s.app))
		r.Use(middleware.LoadUser(s.app.Auth()))

		r.Get("/hello", h.Hello)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/register", h.RegisterPage)
			r.Post("/register", h.RegisterSubmit)
			r.Get("/login", h.LoginPage)
			r.Post("/login", h.LoginSubmit)
			r.Get("/logout", h.Logout)
		})

		r.Get("/", h.Index)

		// Login required
		r.Group(func(r chi.Router) {
			r.Use(middleware.LoginRequired)

			r.Get("/create", h.CreatePage)
			r.Post("/create", h.CreateSubmit)
			r.Get("/{id}/update", h.UpdatePage)
			r.Post("/{id}/update", h.UpdateSubmit)
			r.Post("/{id}/delete", h.Delete)
		})
	})

	return nil
}

// Start starts the web server and blocks until ctx is cancelled or serving fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.app.Config().Addr()

	server := &http.Server{
		Addr:    addr,
		Handler: s.router,
		// ReadTimeout is for reading request body
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		// IdleTimeout for keep-alive connections between requests
		IdleTimeout: 120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
