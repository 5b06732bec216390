package middleware

import (
	"net/http"

	"github.com/memberkit/credential-service/internal/http/response"
)

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			if !claims.HasRole(roles...) {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", map[string]any{"required_any": roles})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
