package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newLoggedHandler(buf *bytes.Buffer, status int) http.Handler {
	logger := slog.New(slog.NewTextHandler(buf, nil))
	mw := NewRequestLoggingMiddleware(logger)
	return mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
}

func TestRequestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, http.StatusOK)

	req := httptest.NewRequest("GET", "/engins/list", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := buf.String()
	for _, want := range []string{"GET", "/engins/list", "status=200", "192.168.1.1", "test-agent", "htmx=true", "level=INFO"} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry a request id")
	}
}

func TestRequestLoggingMiddleware_ServerErrorIsWarn(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, http.StatusBadGateway)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/banques", nil))

	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "status=502") {
		t.Errorf("expected warn with status 502, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	var seen string
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := NewRequestLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/devises", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" {
		t.Errorf("context request id = %q, want abc-123", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("response request id = %q, want abc-123", got)
	}
}

func TestRequestLoggingMiddleware_RedactsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, http.StatusOK)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/engins/search?q=pelle&token=secret123", nil))

	out := buf.String()
	if strings.Contains(out, "secret123") {
		t.Errorf("log should not contain the token, got: %s", out)
	}
	if !strings.Contains(out, "q=pelle") {
		t.Errorf("log should keep harmless params, got: %s", out)
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/static/app.css"} {
		var buf bytes.Buffer
		h := newLoggedHandler(&buf, http.StatusOK)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
		if buf.Len() != 0 {
			t.Errorf("%s should not be logged, got: %s", path, buf.String())
		}
	}
}

func TestRequestLoggingMiddleware_FirstStatusWins(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewRequestLoggingMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/engins", nil))

	if !strings.Contains(buf.String(), "status=201") {
		t.Errorf("expected status=201, got: %s", buf.String())
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path, query, want string
	}{
		{"/engins", "", "/engins"},
		{"/engins", "q=a", "/engins?q=a"},
		{"/x", "Token=abc&page=2", "/x?Token=[REDACTED]&page=2"},
		{"/x", "novalue", "/x"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.path, tt.query); got != tt.want {
			t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
		}
	}
}
