package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/campusAuth/jwt"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseRefresh func(token string) (*jwt.RefreshClaims, error)
	Revoke       func(ctx context.Context, token string) (bool, error)
	RevokeAll    func(ctx context.Context, accountID string) (int, error)
}

// LogoutResult reports what a best-effort logout did.
type LogoutResult struct {
	AccountID string
	Revoked   bool
	Skipped   bool
	Err       error
}

// RunLogout revokes token if it is currently usable. Blank tokens are
// skipped. The account id is read from the token only when its signature
// still verifies.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	if strings.TrimSpace(token) == "" {
		return LogoutResult{Skipped: true}
	}
	var res LogoutResult
	if claims, err := deps.ParseRefresh(token); err == nil {
		res.AccountID = claims.UserID
	}
	res.Revoked, res.Err = deps.Revoke(ctx, token)
	return res
}

// RunLogoutAll revokes every usable refresh token of accountID.
func RunLogoutAll(ctx context.Context, accountID string, deps LogoutDeps) (int, error) {
	if strings.TrimSpace(accountID) == "" {
		return 0, nil
	}
	return deps.RevokeAll(ctx, accountID)
}
