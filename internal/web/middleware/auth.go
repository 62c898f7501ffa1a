package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/asistencia/internal/auth"
	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/logging"
)

// Errors reported to the error responder. Their text is matched by
// core.MapError.
var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInsufficientRole = errors.New("insufficient role")
)

// ErrorResponder writes an error response for err with the given status.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error, status int)

// RequireAuth returns middleware that verifies the Authorization bearer
// token. Verified claims are stored in the request context together with
// the username for logging and auditing.
func RequireAuth(issuer *auth.Issuer, respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logging.FromContext(r.Context()).Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				respond(w, r, ErrMissingToken, http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Parse(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("auth: rejected token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				respond(w, r, err, http.StatusUnauthorized)
				return
			}

			SetLoggedUser(w, claims.Username())
			ctx := auth.WithClaims(r.Context(), claims)
			ctx = logging.WithUser(ctx, claims.Username())
			ctx = core.ContextWithActor(ctx, claims.Username())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose token role is not one of roles.
// It must run after RequireAuth.
func RequireRole(respond ErrorResponder, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				respond(w, r, ErrMissingToken, http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logging.FromContext(r.Context()).Warn("auth: insufficient role",
				"path", r.URL.Path,
				"role", claims.Role,
			)
			respond(w, r, ErrInsufficientRole, http.StatusForbidden)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
