// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

// Package web serves the ProfileHub site: signup, login, profiles and
// account management over server-rendered HTML forms.
package web

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/internal/observability"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address used by Start.
	Addr string
	// Production enables the HTTPS redirect and HSTS.
	Production bool
	// StaticDir serves assets from disk instead of the embedded copy.
	StaticDir string
	// MinPasswordLength is shown on forms and checked before hashing.
	MinPasswordLength int
	Logger            *slog.Logger
	// Metrics may be nil.
	Metrics *observability.Metrics
}

// Server is the web front end.
type Server struct {
	svc      *auth.Service
	identity *auth.IdentitySerializer
	sessions *SessionManager

	addr              string
	production        bool
	minPasswordLength int
	logger            *slog.Logger
	metrics           *observability.Metrics
	pages             map[string]*template.Template
	static            http.Handler

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server. Templates are parsed eagerly so a broken
// template fails startup.
func NewServer(svc *auth.Service, identity *auth.IdentitySerializer, sessions *SessionManager, opts Options) (*Server, error) {
	if svc == nil || identity == nil || sessions == nil {
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("service, identity serializer and session manager are required")
	}

	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	static, err := staticHandler(opts.StaticDir)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minLen := opts.MinPasswordLength
	if minLen <= 0 {
		minLen = auth.DefaultMinPasswordLength
	}

	return &Server{
		svc:               svc,
		identity:          identity,
		sessions:          sessions,
		addr:              opts.Addr,
		production:        opts.Production,
		minPasswordLength: minLen,
		logger:            logger,
		metrics:           opts.Metrics,
		pages:             pages,
		static:            static,
	}, nil
}

// Handler returns the site's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(s.requireHTTPS)
	r.Use(s.securityHeaders)

	r.Handle("/static/*", s.static)

	r.Group(func(r chi.Router) {
		r.Use(s.loadSession)
		r.Use(s.verifyCSRF)

		r.Get("/", s.handleIndex)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)
		r.Get("/signup", s.handleSignupPage)
		r.Post("/signup", s.handleSignup)
		r.Get("/users/{username}", s.handleProfile)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/edit", s.handleEditPage)
			r.Post("/edit", s.handleEdit)
			r.Post("/edit/password", s.handleChangePassword)
			r.Post("/delete-account", s.handleDeleteAccount)
		})
	})

	r.NotFound(s.loadSession(http.HandlerFunc(s.handleNotFound)).ServeHTTP)
	r.MethodNotAllowed(s.loadSession(http.HandlerFunc(s.handleMethodNotAllowed)).ServeHTTP)
	return r
}

// Start begins serving. The returned channel receives a serve error, if
// any, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String(), "production", s.production)
	return errCh, nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
