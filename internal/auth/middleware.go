package auth

import (
	"context"
	"net/http"
	"strings"
)

// CookieName is the session cookie set by the login handler.
const CookieName = "linkstash_session"

// contextKey is private so no other package can read or overwrite the
// subject stored in a request context.
type contextKey string

const subjectKey contextKey = "subject"

// RequireAuth rejects requests without a valid session token with 401.
//
// The token is read from the session cookie, or from an
// "Authorization: Bearer <jwt>" header for scripts. A nil tokens means auth
// is disabled and every request passes.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := tokens.Validate(tokenFromRequest(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

// IsAuthenticated reports whether r carries a valid token. Always true when
// tokens is nil.
func IsAuthenticated(r *http.Request, tokens *TokenService) bool {
	if tokens == nil {
		return true
	}
	_, err := tokens.Validate(tokenFromRequest(r))
	return err == nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
