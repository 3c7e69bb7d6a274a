// Package session reads the back-office session from the cookies set by the
// login application and carries it through request contexts.
//
// The cookies are issued elsewhere; this package only reads them.
package session

const (
	// TokenCookie holds the bearer token forwarded to the backend.
	TokenCookie = "token"

	// UserCookie holds the signed-in user, as a URL-encoded JSON object or a plain name.
	UserCookie = "appUser"

	// ExerciceCookie holds the current accounting period as URL-encoded JSON.
	ExerciceCookie = "currentExercice"

	// DefaultLoginURL is where requests without a token are sent.
	DefaultLoginURL = "/auth/login2"
)
