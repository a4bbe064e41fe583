package campusAuth

import (
	"errors"
	"time"
)

// ErrorKind classifies every error returned by the authentication engine.
type ErrorKind uint8

const (
	kindUnknown ErrorKind = iota
	// KindRateLimited means the identifier is blocked; AuthError.Wait says for how long.
	KindRateLimited
	// KindInvalidCredentials covers unknown emails, unknown tenants and wrong passwords alike.
	KindInvalidCredentials
	// KindInvalidState means the account or its tenant may not authenticate right now.
	KindInvalidState
	// KindNotFound is returned by direct lookups such as TenantBySubdomain.
	KindNotFound
	// KindInvalidToken covers malformed, expired, revoked and reused tokens.
	KindInvalidToken
	// KindUnrecognized is a fatal lifecycle state outside the known set.
	KindUnrecognized
	// KindUnavailable means a backing store failed and the engine failed closed.
	KindUnavailable
)

var kindNames = [...]string{
	kindUnknown:            "unknown",
	KindRateLimited:        "rate_limited",
	KindInvalidCredentials: "invalid_credentials",
	KindInvalidState:       "invalid_state",
	KindNotFound:           "not_found",
	KindInvalidToken:       "invalid_token",
	KindUnrecognized:       "unrecognized_account_state",
	KindUnavailable:        "unavailable",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[kindUnknown]
}

// AuthError is the single error type returned by Engine operations. Reason
// is safe to show to end users only for KindInvalidState; for every other
// kind it is empty.
type AuthError struct {
	Kind   ErrorKind
	Reason string
	// Wait is set for KindRateLimited.
	Wait time.Duration
	// Err is the underlying cause, never shown to callers of Error().
	Err error
}

var kindMessages = [...]string{
	kindUnknown:            "authentication failed",
	KindRateLimited:        "too many failed login attempts",
	KindInvalidCredentials: "invalid credentials",
	KindInvalidState:       "account cannot authenticate",
	KindNotFound:           "not found",
	KindInvalidToken:       "invalid token",
	KindUnrecognized:       "unrecognized account state",
	KindUnavailable:        "authentication backend unavailable",
}

func (e *AuthError) Error() string {
	msg := kindMessages[kindUnknown]
	if int(e.Kind) < len(kindMessages) {
		msg = kindMessages[e.Kind]
	}
	if e.Kind == KindInvalidState && e.Reason != "" {
		return msg + ": " + e.Reason
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind, so errors.Is(err, ErrInvalidToken)
// holds for every invalid-token failure regardless of cause.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Reason == "" && t.Err == nil
}

// WaitMinutes rounds Wait up to whole minutes, never below 1 while blocked.
func (e *AuthError) WaitMinutes() int {
	if e == nil || e.Kind != KindRateLimited {
		return 0
	}
	m := int((e.Wait + time.Minute - 1) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

var (
	ErrRateLimited              = &AuthError{Kind: KindRateLimited}
	ErrInvalidCredentials       = &AuthError{Kind: KindInvalidCredentials}
	ErrInvalidState             = &AuthError{Kind: KindInvalidState}
	ErrNotFound                 = &AuthError{Kind: KindNotFound}
	ErrInvalidToken             = &AuthError{Kind: KindInvalidToken}
	ErrUnrecognizedAccountState = &AuthError{Kind: KindUnrecognized}
	ErrUnavailable              = &AuthError{Kind: KindUnavailable}

	// ErrEngineNotReady is returned by methods called on an engine that was
	// not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitWait extracts the remaining block from a rate-limit error.
func RateLimitWait(err error) (time.Duration, bool) {
	var ae *AuthError
	if errors.As(err, &ae) && ae.Kind == KindRateLimited {
		return ae.Wait, true
	}
	return 0, false
}

// KindOf returns the kind of err, or zero when err is not an *AuthError.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return kindUnknown
}

func newAuthError(kind ErrorKind, reason string, cause error) *AuthError {
	return &AuthError{Kind: kind, Reason: reason, Err: cause}
}
