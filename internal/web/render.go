// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/pkg/errutil"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"index", "login", "signup", "profile", "edit", "error"}

// pageData is passed to every template.
type pageData struct {
	Title             string
	CurrentUser       *auth.User
	CSRFToken         string
	Errors            []string
	Infos             []string
	MinPasswordLength int

	Users      []*auth.User
	Profile    *auth.User
	OwnProfile bool
	Message    string
}

func parseTemplates() (map[string]*template.Template, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, oops.Code("TEMPLATE_PARSE_FAILED").With("template", "layout").Wrap(err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		base, err := layout.Clone()
		if err != nil {
			return nil, oops.Code("TEMPLATE_PARSE_FAILED").With("template", name).Wrap(err)
		}
		page, err := base.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, oops.Code("TEMPLATE_PARSE_FAILED").With("template", name).Wrap(err)
		}
		pages[name] = page
	}
	return pages, nil
}

func staticHandler(dir string) (http.Handler, error) {
	if dir != "" {
		return http.StripPrefix("/static/", http.FileServer(http.Dir(dir))), nil
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, oops.Code("STATIC_FS_FAILED").Wrap(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub))), nil
}

// render writes a page. Pending flashes are shown and then consumed.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	st := stateFrom(r.Context())
	data.CurrentUser = st.user
	data.MinPasswordLength = s.minPasswordLength
	if st.session != nil {
		data.CSRFToken = st.session.CSRF
	}
	data.Errors = append(data.Errors, st.flash.Errors...)
	data.Infos = append(data.Infos, st.flash.Infos...)

	tmpl, ok := s.pages[name]
	if !ok {
		errutil.LogErrorContext(r.Context(), s.logger, slog.LevelError, "render failed",
			oops.Code("TEMPLATE_NOT_FOUND").With("template", name).Errorf("unknown template %q", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		errutil.LogErrorContext(r.Context(), s.logger, slog.LevelError, "render failed",
			oops.Code("TEMPLATE_EXECUTE_FAILED").With("template", name).Wrap(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if !st.flash.Empty() {
		s.sessions.ClearFlash(w)
		st.flash = Flashes{}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	w.Write(buf.Bytes())
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", pageData{Title: http.StatusText(status), Message: message})
}

// fail renders the page for an unexpected error. Store outages become 503.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, auth.ErrStoreUnavailable) {
		errutil.LogErrorContext(r.Context(), s.logger, slog.LevelWarn, msg, err)
		s.renderError(w, r, http.StatusServiceUnavailable, "The service is temporarily unavailable. Please try again later.")
		return
	}
	errutil.LogErrorContext(r.Context(), s.logger, slog.LevelError, msg, err)
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// flashRedirect queues messages for the next rendered page and redirects.
func (s *Server) flashRedirect(w http.ResponseWriter, r *http.Request, f Flashes, to string) {
	if err := s.sessions.WriteFlash(w, f); err != nil {
		errutil.LogErrorContext(r.Context(), s.logger, slog.LevelError, "flash write failed", err)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
