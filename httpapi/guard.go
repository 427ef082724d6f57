package httpapi

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// LoggedInReporter reports the current session flag.
type LoggedInReporter interface {
	IsLoggedIn() bool
}

// RequireLoggedIn rejects requests with 401 while the session is logged out.
// It reads the in-memory flag only and performs no storage or API calls.
func RequireLoggedIn(session LoggedInReporter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session == nil || !session.IsLoggedIn() {
				writeJSON(w, http.StatusUnauthorized, errorResponse{
					Error: goSession.ErrUnauthenticated.Error(),
					Kind:  kindUnauthenticated,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
