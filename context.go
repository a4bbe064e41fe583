package campusAuth

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a caller request id to ctx. The engine copies it
// into audit event metadata.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
