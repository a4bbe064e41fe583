package middleware

import (
	"net/http"
	"strconv"

	campusAuth "github.com/MrEthical07/campusAuth"
)

// StatusFor maps an engine error to an HTTP status code. Nil maps to 200.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch campusAuth.KindOf(err) {
	case campusAuth.KindRateLimited:
		return http.StatusTooManyRequests
	case campusAuth.KindInvalidCredentials, campusAuth.KindInvalidToken:
		return http.StatusUnauthorized
	case campusAuth.KindInvalidState:
		return http.StatusForbidden
	case campusAuth.KindNotFound:
		return http.StatusNotFound
	case campusAuth.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with its mapped status. Rate-limit responses carry
// Retry-After in whole seconds.
func WriteError(w http.ResponseWriter, err error) {
	if wait, ok := campusAuth.RateLimitWait(err); ok {
		secs := int(wait.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	http.Error(w, err.Error(), StatusFor(err))
}
