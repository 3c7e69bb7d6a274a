package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/DukeRupert/guichet/internal/session"
)

func protected(t *testing.T, seen *session.Context) http.Handler {
	t.Helper()
	m := NewSessionMiddleware("/auth/login2", discardLogger())
	return Stack(m.Load, m.Require)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen, _ = session.From(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestSessionMiddleware_PassesWithToken(t *testing.T) {
	var seen session.Context
	h := protected(t, &seen)

	req := httptest.NewRequest("GET", "/engins", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: "tok"})
	req.AddCookie(&http.Cookie{Name: session.UserCookie, Value: "jdupont"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen.Token != "tok" || seen.User != "jdupont" {
		t.Errorf("session = %+v", seen)
	}
}

func TestSessionMiddleware_RedirectsWithoutToken(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantHeader string
	}{
		{name: "page", wantStatus: http.StatusSeeOther, wantHeader: "Location"},
		{name: "htmx", headers: map[string]string{"HX-Request": "true"}, wantStatus: http.StatusNoContent, wantHeader: "HX-Redirect"},
		{name: "api", headers: map[string]string{"Accept": "application/json"}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := protected(t, nil)
			req := httptest.NewRequest("GET", "/engins/list?tab=1", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantHeader != "" {
				want := "/auth/login2?return_to=" + url.QueryEscape("/engins/list?tab=1")
				if got := rec.Header().Get(tt.wantHeader); got != want {
					t.Errorf("%s = %q, want %q", tt.wantHeader, got, want)
				}
			} else {
				var body map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body["error"] != "unauthorized" {
					t.Errorf("body = %v", body)
				}
			}
		})
	}
}

func TestSessionMiddleware_RequireWithoutLoad(t *testing.T) {
	m := NewSessionMiddleware("", discardLogger())
	h := m.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sc, ok := session.From(r.Context()); !ok || sc.Token != "tok" {
			t.Errorf("session not stored: %+v", sc)
		}
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: "tok"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got := m.LoginURL(httptest.NewRequest("GET", "/x", nil)); got != session.DefaultLoginURL+"?return_to=%2Fx" {
		t.Errorf("LoginURL = %q", got)
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Stack(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"a", "b", "c", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		path    string
		headers map[string]string
		want    bool
	}{
		{"/engins", nil, false},
		{"/api/engins", nil, true},
		{"/engins", map[string]string{"Accept": "application/json"}, true},
		{"/engins", map[string]string{"Content-Type": "application/json"}, true},
		{"/api/engins", map[string]string{"HX-Request": "true"}, false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		for k, v := range tt.headers {
			req.Header.Set(k, v)
		}
		if got := isAPIRequest(req); got != tt.want {
			t.Errorf("isAPIRequest(%s %v) = %v, want %v", tt.path, tt.headers, got, tt.want)
		}
	}
}
