package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DukeRupert/guichet/internal/csrf"
)

func csrfHandler(seen *string) http.Handler {
	return NewCSRFMiddleware(false, discardLogger()).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = csrf.Token(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_IssuesTokenOnGet(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()
	csrfHandler(&seen).ServeHTTP(rec, httptest.NewRequest("GET", "/engins", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrf.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("csrf cookie not set")
	}
	if seen == "" || seen != cookie.Value {
		t.Errorf("context token %q does not match cookie %q", seen, cookie.Value)
	}
}

func TestCSRFMiddleware_ReusesExistingCookie(t *testing.T) {
	var seen string
	req := httptest.NewRequest("GET", "/engins", nil)
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: "existing"})
	rec := httptest.NewRecorder()
	csrfHandler(&seen).ServeHTTP(rec, req)

	if seen != "existing" {
		t.Errorf("token = %q, want existing", seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no new cookie expected")
	}
}

func TestCSRFMiddleware_UnsafeMethods(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		header     string
		form       string
		wantStatus int
	}{
		{name: "header", method: "DELETE", header: "tok", wantStatus: http.StatusOK},
		{name: "form", method: "POST", form: "tok", wantStatus: http.StatusOK},
		{name: "missing", method: "PUT", wantStatus: http.StatusForbidden},
		{name: "mismatch", method: "POST", header: "other", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.form != "" {
				body = strings.NewReader(url.Values{csrf.FormFieldName: {tt.form}}.Encode())
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, "/engins/1", body)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: "tok"})
			if tt.header != "" {
				req.Header.Set(csrf.HeaderName, tt.header)
			}

			var seen string
			rec := httptest.NewRecorder()
			csrfHandler(&seen).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && seen != "tok" {
				t.Errorf("context token = %q", seen)
			}
		})
	}
}
