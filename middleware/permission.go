package middleware

import (
	"net/http"

	"github.com/MrEthical07/campusAuth/permission"
)

// RequirePermission must run behind [Guard]. It answers 403 unless the
// token grants every listed permission.
func RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !permission.HasAll(res.Permissions, perms...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
