package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// MetricsRealm is announced to scrapers that omit credentials.
const MetricsRealm = `Basic realm="guichet metrics", charset="UTF-8"`

// MetricsAuthMiddleware guards the Prometheus endpoint with basic
// authentication. Credentials are compared as SHA-256 digests, so the
// comparison time does not depend on their length.
type MetricsAuthMiddleware struct {
	user    [sha256.Size]byte
	pass    [sha256.Size]byte
	enabled bool
	logger  *slog.Logger
}

// NewMetricsAuthMiddleware creates the middleware. With neither username
// nor password, /metrics is served without authentication.
func NewMetricsAuthMiddleware(username, password string, logger *slog.Logger) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		user:    sha256.Sum256([]byte(username)),
		pass:    sha256.Sum256([]byte(password)),
		enabled: username != "" || password != "",
		logger:  logger,
	}
}

// Handler wraps next.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	if !m.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(r) {
			m.logger.Warn("metrics scrape rejected", "ip", getClientIP(r))
			w.Header().Set("WWW-Authenticate", MetricsRealm)
			http.Error(w, "Authentification requise.", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *MetricsAuthMiddleware) authorized(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	u := sha256.Sum256([]byte(user))
	p := sha256.Sum256([]byte(pass))
	// Both comparisons always run.
	userOK := subtle.ConstantTimeCompare(u[:], m.user[:])
	passOK := subtle.ConstantTimeCompare(p[:], m.pass[:])
	return userOK&passOK == 1
}
