package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/guichet/internal/csrf"
)

// CSRFMiddleware issues the CSRF cookie and checks it on unsafe methods.
type CSRFMiddleware struct {
	isSecure bool
	logger   *slog.Logger
}

// NewCSRFMiddleware creates the CSRF middleware.
func NewCSRFMiddleware(isSecure bool, logger *slog.Logger) *CSRFMiddleware {
	return &CSRFMiddleware{isSecure: isSecure, logger: logger}
}

// Handler makes the token available to templates through the request
// context and rejects POST, PUT, PATCH and DELETE requests without it.
func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := csrf.EnsureToken(w, r, m.isSecure)
			if err != nil {
				m.logger.Error("failed to issue csrf token", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(csrf.WithToken(r.Context(), token)))
			return
		}

		if !csrf.ValidateRequest(r) {
			m.logger.Warn("csrf validation failed", "method", r.Method, "path", r.URL.Path, "ip", getClientIP(r))
			http.Error(w, "Jeton de sécurité invalide. Rechargez la page.", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(csrf.WithToken(r.Context(), csrf.Submitted(r))))
	})
}
