package campusAuth

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAuthErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := fmt.Errorf("wrapped: %w", newAuthError(KindUnavailable, "", cause))

	if !errors.Is(err, ErrUnavailable) {
		t.Fatal("expected ErrUnavailable match")
	}
	if errors.Is(err, ErrInvalidToken) {
		t.Fatal("kind mismatch matched")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause should be reachable through Unwrap")
	}
	if KindOf(err) != KindUnavailable {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
	if KindOf(errors.New("plain")).String() != "unknown" {
		t.Fatal("plain errors have no kind")
	}
}

func TestAuthErrorMessageHidesCause(t *testing.T) {
	err := newAuthError(KindInvalidCredentials, "", errors.New("credential_not_found"))
	if err.Error() != "invalid credentials" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	state := newAuthError(KindInvalidState, "suspended", nil)
	if state.Error() != "account cannot authenticate: suspended" {
		t.Fatalf("unexpected message %q", state.Error())
	}
	if !errors.Is(state, ErrInvalidState) {
		t.Fatal("expected ErrInvalidState match")
	}
}

func TestWaitMinutes(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want int
	}{
		{0, 1},
		{time.Second, 1},
		{time.Minute, 1},
		{time.Minute + time.Second, 2},
		{10 * time.Minute, 10},
	}
	for _, tc := range tests {
		err := &AuthError{Kind: KindRateLimited, Wait: tc.wait}
		if got := err.WaitMinutes(); got != tc.want {
			t.Fatalf("WaitMinutes(%v) = %d, want %d", tc.wait, got, tc.want)
		}
	}

	if got := (&AuthError{Kind: KindInvalidToken, Wait: time.Hour}).WaitMinutes(); got != 0 {
		t.Fatalf("non rate-limit errors have no wait, got %d", got)
	}
}

func TestRateLimitWait(t *testing.T) {
	wait, ok := RateLimitWait(fmt.Errorf("login: %w", &AuthError{Kind: KindRateLimited, Wait: 42 * time.Second}))
	if !ok || wait != 42*time.Second {
		t.Fatalf("RateLimitWait = %v, %v", wait, ok)
	}
	if _, ok := RateLimitWait(ErrInvalidCredentials); ok {
		t.Fatal("invalid credentials carry no wait")
	}
}

func TestKindNames(t *testing.T) {
	if KindUnrecognized.String() != "unrecognized_account_state" {
		t.Fatalf("unexpected name %q", KindUnrecognized.String())
	}
	if ErrorKind(200).String() != "unknown" {
		t.Fatal("out of range kinds are unknown")
	}
}
