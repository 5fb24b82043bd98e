// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package web

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/pkg/errutil"
)

// CSRFFieldName is the hidden form field carrying the CSRF token.
const CSRFFieldName = "_csrf"

// CSRFHeaderName is accepted in place of the form field.
const CSRFHeaderName = "X-CSRF-Token"

// maxFormBytes caps the size of a submitted form.
const maxFormBytes = 64 << 10

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://cdnjs.cloudflare.com https://maxcdn.bootstrapcdn.com; " +
	"style-src 'self' https://maxcdn.bootstrapcdn.com https://cdnjs.cloudflare.com; " +
	"font-src 'self' https://cdnjs.cloudflare.com https://fonts.googleapis.com https://fonts.gstatic.com https://maxcdn.bootstrapcdn.com"

// securityHeaders sets the response headers every page carries.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-XSS-Protection", "0")
		h.Set("Referrer-Policy", "no-referrer")
		if s.production {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// requireHTTPS redirects plain requests arriving through a TLS-terminating
// proxy. It is a no-op outside production.
func (s *Server) requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.production && r.Header.Get("X-Forwarded-Proto") != "https" {
			http.Redirect(w, r, "https://"+r.Host+r.URL.RequestURI(), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records a metric and a log line per request. It never logs
// the session or the user.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		s.metrics.ObserveRequest(route, status)
		s.logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// loadSession resolves the session cookie and its identity. Visitors
// without a valid cookie get a fresh anonymous session. An identity whose
// user no longer exists resolves to anonymous and the cookie is rewritten.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &requestState{flash: s.sessions.ReadFlash(r)}
		ctx := withState(r.Context(), st)
		r = r.WithContext(ctx)

		sess, ok := s.sessions.Read(r)
		dirty := !ok
		if !ok {
			sess = NewSession()
		}
		st.session = sess

		if sess.Authenticated() {
			user, err := s.identity.Deserialize(ctx, sess.Identity)
			switch {
			case err == nil:
				st.user = user
			case errors.Is(err, auth.ErrNotFound):
				errutil.LogErrorContext(ctx, s.logger, slog.LevelInfo, "stale session identity", err)
				sess.Identity = ""
				dirty = true
			default:
				s.fail(w, r, "session lookup failed", err)
				return
			}
		}

		if dirty {
			if err := s.sessions.Write(w, sess); err != nil {
				s.fail(w, r, "session write failed", err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// verifyCSRF rejects unsafe requests whose token does not match the
// session's. It also bounds the request body.
func (s *Server) verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "The submitted form could not be read.")
			return
		}

		token := r.PostForm.Get(CSRFFieldName)
		if token == "" {
			token = r.Header.Get(CSRFHeaderName)
		}
		st := stateFrom(r.Context())
		if st.session == nil || token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(st.session.CSRF)) != 1 {
			s.logger.WarnContext(r.Context(), "csrf token mismatch", "method", r.Method)
			s.renderError(w, r, http.StatusForbidden, "Invalid or expired form. Please go back, reload the page and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth sends anonymous visitors to the login page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r.Context()) == nil {
			s.flashRedirect(w, r, Flashes{Infos: []string{"You must be logged in to see this page."}}, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}
