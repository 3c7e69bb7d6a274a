// Package middleware contains the HTTP middleware of the guichet server.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler
// and are composed with Stack.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/guichet/internal/session"
)

// SessionMiddleware reads the back-office cookies into a session.Context.
// Cookies are issued by the login application; this server never sets them.
type SessionMiddleware struct {
	loginURL string
	logger   *slog.Logger
}

// NewSessionMiddleware creates the session middleware. Requests without a
// token are sent to loginURL.
func NewSessionMiddleware(loginURL string, logger *slog.Logger) *SessionMiddleware {
	if loginURL == "" {
		loginURL = session.DefaultLoginURL
	}
	return &SessionMiddleware{loginURL: loginURL, logger: logger}
}

// Load parses the cookies once and stores the session in the request context.
// It never rejects a request.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := session.FromRequest(r)
		next.ServeHTTP(w, r.WithContext(session.With(r.Context(), sc)))
	})
}

// Require lets through requests whose session has a token.
//
// Without one, full page requests are redirected to the login page, htmx
// requests get an HX-Redirect so the whole page navigates, and API requests
// get a 401 JSON body. Use it after Load.
func (m *SessionMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, ok := session.From(r.Context())
		if !ok {
			sc = session.FromRequest(r)
			r = r.WithContext(session.With(r.Context(), sc))
		}
		if sc.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}

		target := m.LoginURL(r)
		m.logger.Debug("no session token, redirecting to login", "path", r.URL.Path)

		switch {
		case isHTMXRequest(r):
			w.Header().Set("HX-Redirect", target)
			w.WriteHeader(http.StatusNoContent)
		case isAPIRequest(r):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": "Session expirée. Veuillez vous reconnecter.",
			})
		default:
			http.Redirect(w, r, target, http.StatusSeeOther)
		}
	})
}

// LoginURL returns the login page with a return_to parameter for r.
func (m *SessionMiddleware) LoginURL(r *http.Request) string {
	returnTo := r.URL.Path
	if r.URL.RawQuery != "" {
		returnTo += "?" + r.URL.RawQuery
	}
	sep := "?"
	if strings.Contains(m.loginURL, "?") {
		sep = "&"
	}
	return m.loginURL + sep + "return_to=" + url.QueryEscape(returnTo)
}

// isHTMXRequest reports whether htmx issued the request.
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// isAPIRequest determines if the request expects a JSON response.
// htmx requests want HTML fragments and never count as API requests.
func isAPIRequest(r *http.Request) bool {
	if isHTMXRequest(r) {
		return false
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// Stack composes middleware; the first one is the outermost.
//
//	stack := Stack(logging.Handler, sessions.Load, sessions.Require)
//	mux.Handle("GET /banques", stack(banques))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
