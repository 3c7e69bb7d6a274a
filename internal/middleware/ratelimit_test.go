package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DukeRupert/guichet/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLimiter(t *testing.T, max int, window time.Duration) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(max, window, discardLogger())
	t.Cleanup(rl.Close)
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("a") {
		t.Error("4th request should be denied")
	}
	if !rl.Allow("b") {
		t.Error("other keys have their own budget")
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl := newTestLimiter(t, 1, time.Minute)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	if rl.Allow("a") {
		t.Fatal("second request in window should be denied")
	}
	if got := rl.TimeUntilReset("a"); got != time.Minute {
		t.Errorf("TimeUntilReset = %v, want 1m", got)
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("request after the window should be allowed")
	}
}

func TestRateLimiter_ResetAndSweep(t *testing.T) {
	rl := newTestLimiter(t, 1, time.Minute)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	rl.Reset("a")
	if !rl.Allow("a") {
		t.Error("reset key should be allowed again")
	}

	now = now.Add(2 * time.Minute)
	rl.sweep()
	if rl.Len() != 0 {
		t.Errorf("sweep left %d entries", rl.Len())
	}
	if rl.TimeUntilReset("missing") != 0 {
		t.Error("unknown key should have no wait")
	}
}

func TestRateLimiter_CloseTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Millisecond, discardLogger())
	rl.Close()
	rl.Close()
}

func limitedHandler(t *testing.T, max int, key KeyFunc) http.Handler {
	t.Helper()
	mw := NewRateLimitMiddleware(newTestLimiter(t, max, time.Minute), key, discardLogger())
	return mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitMiddleware_Responses(t *testing.T) {
	tests := []struct {
		name        string
		headers     map[string]string
		wantType    string
		wantBody    string
		wantTrigger bool
	}{
		{name: "html", wantType: "text/html", wantBody: "Trop de requêtes"},
		{name: "json", headers: map[string]string{"Accept": "application/json"}, wantType: "application/json", wantBody: "rate_limit_exceeded"},
		{name: "htmx", headers: map[string]string{"HX-Request": "true"}, wantTrigger: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := limitedHandler(t, 1, nil)

			var rec *httptest.ResponseRecorder
			for i := 0; i < 2; i++ {
				req := httptest.NewRequest("POST", "/engins/exports?format=csv", nil)
				req.RemoteAddr = "10.0.0.1:1234"
				for k, v := range tt.headers {
					req.Header.Set(k, v)
				}
				rec = httptest.NewRecorder()
				h.ServeHTTP(rec, req)
			}

			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("status = %d, want 429", rec.Code)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Error("missing Retry-After")
			}
			if tt.wantType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), tt.wantType) {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q", rec.Body.String())
			}
			if tt.wantTrigger {
				var trigger map[string]map[string]string
				if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &trigger); err != nil {
					t.Fatalf("HX-Trigger is not JSON: %v", err)
				}
				if trigger["showToast"]["level"] != "warning" {
					t.Errorf("trigger = %v", trigger)
				}
				if rec.Header().Get("HX-Reswap") != "none" {
					t.Error("htmx response should not swap")
				}
			}
		})
	}
}

func TestRateLimitMiddleware_SessionKey(t *testing.T) {
	h := limitedHandler(t, 1, SessionKey)

	send := func(token string) int {
		req := httptest.NewRequest("GET", "/engins/export.csv", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if token != "" {
			req = req.WithContext(session.With(req.Context(), session.Context{Token: token}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if send("alice") != http.StatusOK || send("bob") != http.StatusOK {
		t.Fatal("first request of each session should pass")
	}
	if send("alice") != http.StatusTooManyRequests {
		t.Error("second request of the same session should be limited")
	}
	if send("") != http.StatusOK {
		t.Error("anonymous requests are bucketed by IP")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "no port", remote: "10.0.0.1", want: "10.0.0.1"},
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, remote: "10.0.0.1:1", want: "203.0.113.5"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.7 "}, remote: "10.0.0.1:1", want: "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
