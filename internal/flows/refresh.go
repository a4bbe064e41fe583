package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/jwt"
	"github.com/MrEthical07/campusAuth/permission"
	"github.com/MrEthical07/campusAuth/refresh"
	"github.com/MrEthical07/campusAuth/tenant"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureNotFound
	RefreshFailureExpired
	RefreshFailureReuse
	RefreshFailureOwnerMismatch
	RefreshFailureRaceLost
	RefreshFailureStore
	RefreshFailureAccountMissing
	RefreshFailureAccountState
	RefreshFailureTenantInactive
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Reason    string
	Err       error
	AccountID string
	TenantID  string
	Wait      time.Duration
	// RevokedOnReuse counts tokens revoked because a rotated token was replayed.
	RevokedOnReuse int
	Tokens         TokenPair
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Now            func() time.Time
	ParseRefresh   func(token string) (*jwt.RefreshClaims, error)
	Throttle       func(accountID string) (time.Duration, error)
	Lookup         func(ctx context.Context, token string) (*refresh.Record, error)
	Revoke         func(ctx context.Context, token string) (bool, error)
	RevokeAll      func(ctx context.Context, accountID string) (int, error)
	LoadAccount    func(ctx context.Context, accountID string) (account.Identity, error)
	LoadTenant     func(ctx context.Context, tenantID string) (tenant.Tenant, error)
	Issue          IssueFunc
	ReuseDetection bool
	Warn           WarnFunc
}

// RunRefresh validates a refresh token, consumes it and issues a new pair.
//
// The token is revoked before the account is re-read, so a token presented
// for a suspended account is spent even though no new pair is issued.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}

	claims, err := deps.ParseRefresh(token)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	res := RefreshResult{AccountID: claims.UserID}

	if deps.Throttle != nil {
		if wait, err := deps.Throttle(claims.UserID); err != nil {
			res.Failure, res.Err, res.Wait = RefreshFailureRateLimited, err, wait
			return res
		}
	}

	rec, err := deps.Lookup(ctx, token)
	switch {
	case errors.Is(err, refresh.ErrNotFound):
		res.Failure, res.Err = RefreshFailureNotFound, err
		return res
	case err != nil:
		res.Failure, res.Err = RefreshFailureStore, err
		return res
	}

	if rec.Revoked {
		res.Failure = RefreshFailureReuse
		if deps.ReuseDetection {
			n, err := deps.RevokeAll(ctx, rec.AccountID)
			if err != nil {
				deps.Warn("campusAuth: revoke after refresh reuse failed", "account_id", rec.AccountID, "error", err)
			}
			res.RevokedOnReuse = n
		}
		return res
	}
	if rec.Expired(deps.Now()) {
		res.Failure = RefreshFailureExpired
		return res
	}
	if rec.AccountID != claims.UserID {
		res.Failure = RefreshFailureOwnerMismatch
		return res
	}

	revoked, err := deps.Revoke(ctx, token)
	if err != nil {
		res.Failure, res.Err = RefreshFailureStore, err
		return res
	}
	if !revoked {
		res.Failure = RefreshFailureRaceLost
		return res
	}

	id, err := deps.LoadAccount(ctx, rec.AccountID)
	switch {
	case errors.Is(err, account.ErrNotFound):
		res.Failure, res.Err = RefreshFailureAccountMissing, err
		return res
	case err != nil:
		res.Failure, res.Err = RefreshFailureStore, err
		return res
	}
	res.TenantID = id.TenantID
	if reason, ok, _ := AccountStateReason(id.Status); !ok {
		res.Failure, res.Reason = RefreshFailureAccountState, reason
		return res
	}

	t, err := deps.LoadTenant(ctx, id.TenantID)
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		res.Failure, res.Err = RefreshFailureAccountMissing, err
		return res
	case err != nil:
		res.Failure, res.Err = RefreshFailureStore, err
		return res
	}
	if !t.Active {
		res.Failure, res.Reason = RefreshFailureTenantInactive, ReasonTenantInactive
		return res
	}

	pair, err := deps.Issue(ctx, id, t, permission.Flatten(id.Roles))
	if err != nil {
		res.Failure, res.Err = RefreshFailureIssue, err
		return res
	}
	res.Tokens = pair
	return res
}
