package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveSecure(t *testing.T, isSecure bool, method string) *httptest.ResponseRecorder {
	t.Helper()
	called := false
	h := NewSecurityHeadersMiddleware(isSecure).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, "/engins", nil))
	if !called {
		t.Fatal("next handler was not called")
	}
	return rec
}

func TestSecurityHeadersMiddleware_SetsHeaders(t *testing.T) {
	rec := serveSecure(t, false, "GET")

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"X-XSS-Protection":       "1; mode=block",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should not be set in development")
	}
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	rec := serveSecure(t, true, "POST")
	if got := rec.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=31536000") {
		t.Errorf("HSTS = %q", got)
	}
}

func TestSecurityHeadersMiddleware_CSP(t *testing.T) {
	csp := serveSecure(t, true, "GET").Header().Get("Content-Security-Policy")

	for _, directive := range []string{
		"default-src 'self'",
		"script-src 'self' https://unpkg.com 'unsafe-inline'",
		"style-src 'self' 'unsafe-inline'",
		"frame-ancestors 'none'",
		"form-action 'self'",
	} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP missing %q: %s", directive, csp)
		}
	}
}
