// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/internal/observability"
	"github.com/profilehub/profilehub/pkg/errutil"
)

// Flash messages.
const (
	msgLoginFailed    = "Incorrect username or password."
	msgProfileUpdated = "Profile updated!"
	msgPasswordChange = "Password changed."
	msgAccountDeleted = "Account deleted successfully."
)

// userMessage returns the message of an error meant for the visitor, such
// as a validation failure. Internal errors carry none.
func userMessage(err error) (string, bool) {
	msg := errutil.PublicMessage(err, "")
	return msg, msg != ""
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users(r.Context())
	if err != nil {
		s.fail(w, r, "list users failed", err)
		return
	}
	s.render(w, r, http.StatusOK, "index", pageData{Title: "Home", Users: users})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Log in"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := parseLoginForm(r)
	if err := form.Validate(); err != nil {
		s.metrics.ObserveLogin(observability.ResultFailure)
		s.flashRedirect(w, r, Flashes{Errors: []string{msgLoginFailed}}, "/login")
		return
	}

	user, err := s.svc.Login(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.metrics.ObserveLogin(observability.ResultFailure)
			s.logger.InfoContext(ctx, "login failed", "reason", auth.FailureReason(err))
			s.flashRedirect(w, r, Flashes{Errors: []string{msgLoginFailed}}, "/login")
			return
		}
		s.metrics.ObserveLogin(observability.ResultError)
		s.fail(w, r, "login failed", err)
		return
	}

	if err := s.signIn(w, r, user); err != nil {
		s.metrics.ObserveLogin(observability.ResultError)
		s.fail(w, r, "login failed", err)
		return
	}
	s.metrics.ObserveLogin(observability.ResultSuccess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// signIn binds user to a new session. The CSRF token is rotated.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, user *auth.User) error {
	sess := NewSession()
	sess.Identity = s.identity.Serialize(user)
	if err := s.sessions.Write(w, sess); err != nil {
		return err
	}
	st := stateFrom(r.Context())
	st.session = sess
	st.user = user
	return nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup", pageData{Title: "Sign up"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := parseSignupForm(r)
	if err := form.Validate(s.minPasswordLength); err != nil {
		s.metrics.ObserveSignup(observability.ResultInvalid)
		s.flashRedirect(w, r, Flashes{Errors: formErrors(err, "username", "password")}, "/signup")
		return
	}

	user, err := s.svc.Signup(ctx, auth.SignupRequest{
		Username: form.Username,
		Password: form.Password,
		Bio:      form.Bio,
	})
	if err != nil {
		if msg, ok := userMessage(err); ok {
			result := observability.ResultInvalid
			if errors.Is(err, auth.ErrUsernameTaken) {
				result = observability.ResultTaken
			}
			s.metrics.ObserveSignup(result)
			s.flashRedirect(w, r, Flashes{Errors: []string{msg}}, "/signup")
			return
		}
		s.metrics.ObserveSignup(observability.ResultError)
		s.fail(w, r, "signup failed", err)
		return
	}
	s.metrics.ObserveSignup(observability.ResultSuccess)

	if err := s.signIn(w, r, user); err != nil {
		s.fail(w, r, "signup sign-in failed", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Lookup(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "User not found")
			return
		}
		s.fail(w, r, "profile lookup failed", err)
		return
	}

	current := CurrentUser(r.Context())
	s.render(w, r, http.StatusOK, "profile", pageData{
		Title:      user.Name(),
		Profile:    user,
		OwnProfile: current != nil && current.ID == user.ID,
	})
}

func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "edit", pageData{Title: "Edit profile"})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := parseProfileForm(r)
	current := CurrentUser(ctx)

	if _, err := s.svc.UpdateProfile(ctx, current.ID, auth.Profile{
		DisplayName: form.DisplayName,
		Bio:         form.Bio,
	}); err != nil {
		if msg, ok := userMessage(err); ok {
			s.flashRedirect(w, r, Flashes{Errors: []string{msg}}, "/edit")
			return
		}
		s.fail(w, r, "profile update failed", err)
		return
	}
	s.flashRedirect(w, r, Flashes{Infos: []string{msgProfileUpdated}}, "/edit")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := parsePasswordForm(r)
	if err := form.Validate(s.minPasswordLength); err != nil {
		s.flashRedirect(w, r,
			Flashes{Errors: formErrors(err, "current_password", "new_password", "confirm_password")}, "/edit")
		return
	}

	if err := s.svc.ChangePassword(ctx, CurrentUser(ctx).ID, form.Current, form.New); err != nil {
		if msg, ok := userMessage(err); ok {
			s.flashRedirect(w, r, Flashes{Errors: []string{msg}}, "/edit")
			return
		}
		s.fail(w, r, "password change failed", err)
		return
	}
	s.flashRedirect(w, r, Flashes{Infos: []string{msgPasswordChange}}, "/edit")
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := s.svc.DeleteAccount(ctx, CurrentUser(ctx).ID)
	if err != nil && !errors.Is(err, auth.ErrNotFound) {
		s.fail(w, r, "account deletion failed", err)
		return
	}
	s.metrics.ObserveAccountDeleted()

	s.sessions.Clear(w)
	s.flashRedirect(w, r, Flashes{Infos: []string{msgAccountDeleted}}, "/")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
