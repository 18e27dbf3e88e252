package middleware

import (
	"net/http"

	"github.com/icritic/users-service/internal/domain"
)

// RequireAtLeast rejects callers ranked below minRole. Auth must run first.
func RequireAtLeast(minRole domain.Role, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}
			if !minRole.Valid() {
				writeErr(w, r, domain.ErrForbidden())
				return
			}
			if !role.AtLeast(minRole) {
				writeErr(w, r, domain.ErrInsufficientRole(minRole.String()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
