package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/guichet/internal/domain"
)

// Context is the read-only session of one request.
type Context struct {
	Token    string
	User     string
	Exercice *domain.Exercice
}

// Authenticated reports whether a token is present.
func (c Context) Authenticated() bool {
	return c.Token != ""
}

// ExerciceID returns the current exercice id, or 0 when none is selected.
func (c Context) ExerciceID() int64 {
	if c.Exercice == nil {
		return 0
	}
	return c.Exercice.ID
}

// Owner identifies the holder of the token, whatever exercice is selected.
// It is empty for an anonymous session.
func (c Context) Owner() string {
	if c.Token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c.Token))
	return hex.EncodeToString(sum[:12])
}

// Key identifies the session for per-session state. The raw token is not used
// directly so it never ends up in logs or metrics labels.
func (c Context) Key() string {
	return c.Owner() + ":" + strconv.FormatInt(c.ExerciceID(), 10)
}

// FromRequest parses the session cookies. Malformed user or exercice cookies
// are ignored; only the token decides whether the session is usable.
func FromRequest(r *http.Request) Context {
	var sc Context
	if c, err := r.Cookie(TokenCookie); err == nil {
		sc.Token = strings.TrimSpace(c.Value)
	}
	if c, err := r.Cookie(UserCookie); err == nil {
		sc.User = parseUser(c.Value)
	}
	if c, err := r.Cookie(ExerciceCookie); err == nil {
		sc.Exercice = parseExercice(c.Value)
	}
	return sc
}

func parseUser(raw string) string {
	value := decodeCookie(raw)
	if value == "" {
		return ""
	}

	switch value[0] {
	case '"':
		var s string
		if err := json.Unmarshal([]byte(value), &s); err == nil {
			return strings.TrimSpace(s)
		}
	case '{':
		var u struct {
			Username string `json:"username"`
			Login    string `json:"login"`
			Nom      string `json:"nom"`
			Prenom   string `json:"prenom"`
		}
		if err := json.Unmarshal([]byte(value), &u); err != nil {
			return ""
		}
		for _, s := range []string{u.Username, u.Login} {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
		return strings.TrimSpace(u.Prenom + " " + u.Nom)
	}
	return value
}

func parseExercice(raw string) *domain.Exercice {
	value := decodeCookie(raw)
	if value == "" || value[0] != '{' {
		return nil
	}
	var ex domain.Exercice
	if err := json.Unmarshal([]byte(value), &ex); err != nil {
		return nil
	}
	return &ex
}

func decodeCookie(raw string) string {
	value, err := url.QueryUnescape(raw)
	if err != nil {
		value = raw
	}
	return strings.TrimSpace(value)
}

type contextKey string

const sessionContextKey contextKey = "session"

// With stores sc in ctx.
func With(ctx context.Context, sc Context) context.Context {
	return context.WithValue(ctx, sessionContextKey, sc)
}

// From retrieves the session stored by With. ok is false when none was stored.
func From(ctx context.Context) (Context, bool) {
	sc, ok := ctx.Value(sessionContextKey).(Context)
	return sc, ok
}

// FromRequestContext is a convenience wrapper around From for handlers.
func FromRequestContext(r *http.Request) Context {
	sc, _ := From(r.Context())
	return sc
}
