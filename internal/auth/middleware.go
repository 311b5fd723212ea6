package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/calebmartin/daybook/internal/authz"
	"github.com/calebmartin/daybook/internal/models"
	pkghttp "github.com/calebmartin/daybook/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// SessionContextKey is the key for storing session claims in context
const SessionContextKey contextKey = "session"

// RequestGate returns the edge authorization middleware. It runs once
// per inbound request, before any business handler: the session token
// is verified (pure computation, no store access) and the authorizer's
// decision is enforced. An invalid or absent token simply yields a nil
// session; the authorizer decides what that means for the path.
func RequestGate(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var session *models.SessionClaims

			if token := extractToken(r); token != "" {
				if claims, err := verifier.VerifySession(token); err == nil {
					session = claims
				}
			}

			decision := authz.Authorize(session, r.URL.Path)

			switch decision.Kind {
			case authz.DecisionRedirect:
				http.Redirect(w, r, decision.RedirectTarget, http.StatusSeeOther)
				return
			case authz.DecisionStatus:
				pkghttp.WriteError(w, decision.StatusCode, "forbidden", "insufficient permissions")
				return
			}

			if session != nil {
				ctx := context.WithValue(r.Context(), SessionContextKey, session)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the session token from the cookie, falling back
// to a bearer Authorization header for non-browser clients.
func extractToken(r *http.Request) string {
	if token := GetSessionCookie(r); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// GetSessionFromContext extracts session claims from the request
// context. The second return is false when the request carried no
// valid session.
func GetSessionFromContext(ctx context.Context) (*models.SessionClaims, bool) {
	claims, ok := ctx.Value(SessionContextKey).(*models.SessionClaims)
	return claims, ok
}
