package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// SessionCookie is the cookie the provider's frontend SDK stores the session
// token in.
const SessionCookie = "__session"

var errNoToken = errors.New("identity: no session token")

// RequireAuth rejects requests without a valid session with
// 401 {"error":"Unauthorized"} and stores the Identity in the context
// otherwise.
func RequireAuth(v *TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, v)
			if err != nil {
				if !errors.Is(err, errNoToken) {
					log.Debug("rejected session token", slog.String("error", err.Error()))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the Identity when a valid session is present and
// lets anonymous requests through untouched.
func OptionalAuth(v *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := extractIdentity(r, v); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractIdentity prefers the Authorization header (API clients) and falls
// back to the session cookie (browser).
func extractIdentity(r *http.Request, v *TokenVerifier) (Identity, error) {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return Identity{}, errNoToken
	}
	return v.Verify(token)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
