package middleware

import (
	"context"
	"net/http"
	"strings"

	campusAuth "github.com/MrEthical07/campusAuth"
)

// RequestIDHeader is copied into the engine context so audit events can be
// correlated with access logs.
const RequestIDHeader = "X-Request-ID"

// Validator is the part of *campusAuth.Engine the guard needs.
type Validator interface {
	ValidateAccess(ctx context.Context, token string) (*campusAuth.AuthResult, error)
}

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*campusAuth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*campusAuth.AuthResult)
	return res, ok
}

// WithAuthResult stores res in ctx. Useful for handler tests.
func WithAuthResult(ctx context.Context, res *campusAuth.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			if id := r.Header.Get(RequestIDHeader); id != "" {
				ctx = campusAuth.WithRequestID(ctx, id)
			}

			res, err := v.ValidateAccess(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(ctx, res)))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
