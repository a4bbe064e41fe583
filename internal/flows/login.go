package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/attempt"
	"github.com/MrEthical07/campusAuth/permission"
	"github.com/MrEthical07/campusAuth/tenant"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureTenantInactive
	LoginFailureAccountState
	LoginFailureUnrecognizedState
	LoginFailureUnavailable
	LoginFailureIssue
)

// Reasons attached to failures. Lifecycle and tenant reasons become the
// public InvalidState reason; the rest stay in logs and audit events.
const (
	ReasonEmptyInput         = "empty_input"
	ReasonTenantNotFound     = "tenant_not_found"
	ReasonTenantInactive     = "organization is inactive"
	ReasonCredentialNotFound = "credential_not_found"
	ReasonPasswordMismatch   = "password_mismatch"
	ReasonGuardianManaged    = "managed by guardian"
	ReasonUnverified         = "unverified"
	ReasonSuspended          = "suspended"
	ReasonDeactivated        = "deactivated"
	ReasonUnrecognizedState  = "unrecognized_state"
	ReasonAttemptStore       = "attempt_store"
	ReasonTenantLookup       = "tenant_lookup"
	ReasonCredentialLookup   = "credential_lookup"
	ReasonIssueTokens        = "issue_tokens"
)

// LoginResult carries either the issued session or failure metadata.
type LoginResult struct {
	Failure    LoginFailureKind
	Reason     string
	Err        error
	Identifier string
	Wait       time.Duration

	Account     account.Identity
	Tenant      tenant.Tenant
	Permissions []string
	Tokens      TokenPair
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	ReserveAttempt func(ctx context.Context, identifier string) (attempt.Reservation, attempt.Status, error)
	ReleaseAttempt func(ctx context.Context, r attempt.Reservation) error
	ClearAttempts  func(ctx context.Context, identifier string) error
	ResolveTenant  func(ctx context.Context, email string) (tenant.Tenant, error)
	FindCredential func(ctx context.Context, tenantID, email string) (account.Identity, error)
	PasswordMatch  func(plaintext, hash string) bool
	Issue          IssueFunc
	Warn           WarnFunc
}

// AccountStateReason maps a lifecycle state to the reason login is refused.
// Active returns ok=true; unknown states return ReasonUnrecognizedState and
// known=false.
func AccountStateReason(s account.Status) (reason string, ok bool, known bool) {
	switch s {
	case account.StatusActive:
		return "", true, true
	case account.StatusTutorManaged:
		return ReasonGuardianManaged, false, true
	case account.StatusPendingVerification:
		return ReasonUnverified, false, true
	case account.StatusSuspended:
		return ReasonSuspended, false, true
	case account.StatusDeactivated:
		return ReasonDeactivated, false, true
	default:
		return ReasonUnrecognizedState, false, false
	}
}

// RunLogin authenticates email/password and issues a token pair.
//
// Steps run in fixed order: rate check, tenant resolution, credential
// lookup, password check, lifecycle check, issuance. The rate check reserves
// the attempt, so every rejection after it stays recorded; a blocked
// identifier is rejected without recording. Backend failures release the
// reservation and success clears the record.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	identifier := account.NormalizeEmail(email)
	res := LoginResult{Identifier: identifier}

	ticket, st, err := deps.ReserveAttempt(ctx, identifier)
	if err != nil {
		res.Failure, res.Reason, res.Err = LoginFailureUnavailable, ReasonAttemptStore, err
		return res
	}
	if st.Blocked {
		res.Failure, res.Wait = LoginFailureRateLimited, st.Wait
		return res
	}

	reject := func(kind LoginFailureKind, reason string, cause error) LoginResult {
		res.Failure, res.Reason, res.Err = kind, reason, cause
		return res
	}
	unavailable := func(reason string, cause error) LoginResult {
		if relErr := deps.ReleaseAttempt(ctx, ticket); relErr != nil {
			deps.Warn("campusAuth: release login attempt failed", "error", relErr)
		}
		res.Failure, res.Reason, res.Err = LoginFailureUnavailable, reason, cause
		return res
	}

	if identifier == "" || password == "" {
		return reject(LoginFailureInvalidCredentials, ReasonEmptyInput, nil)
	}

	t, err := deps.ResolveTenant(ctx, identifier)
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		return reject(LoginFailureInvalidCredentials, ReasonTenantNotFound, err)
	case errors.Is(err, tenant.ErrInactive):
		res.Tenant = t
		return reject(LoginFailureTenantInactive, ReasonTenantInactive, err)
	case err != nil:
		return unavailable(ReasonTenantLookup, err)
	}
	res.Tenant = t

	id, err := deps.FindCredential(ctx, t.ID, identifier)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return reject(LoginFailureInvalidCredentials, ReasonCredentialNotFound, err)
	case err != nil:
		return unavailable(ReasonCredentialLookup, err)
	}

	if !deps.PasswordMatch(password, id.PasswordHash) {
		res.Account.ID = id.ID
		return reject(LoginFailureInvalidCredentials, ReasonPasswordMismatch, nil)
	}
	password = ""
	res.Account = id

	if reason, ok, known := AccountStateReason(id.Status); !ok {
		kind := LoginFailureAccountState
		if !known {
			kind = LoginFailureUnrecognizedState
		}
		return reject(kind, reason, nil)
	}

	if err := deps.ClearAttempts(ctx, identifier); err != nil {
		deps.Warn("campusAuth: clear login attempts failed", "error", err)
	}

	res.Permissions = permission.Flatten(id.Roles)
	pair, err := deps.Issue(ctx, id, t, res.Permissions)
	if err != nil {
		res.Failure, res.Reason, res.Err = LoginFailureIssue, ReasonIssueTokens, err
		return res
	}
	res.Tokens = pair
	return res
}
