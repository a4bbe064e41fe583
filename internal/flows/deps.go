package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/tenant"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Validate ValidateDeps
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// IssueFunc mints and persists a token pair for an authenticated account.
type IssueFunc func(ctx context.Context, id account.Identity, t tenant.Tenant, permissions []string) (TokenPair, error)

// WarnFunc receives non-fatal failures. Arguments follow slog key/value pairs.
type WarnFunc func(msg string, args ...any)

func noopWarn(string, ...any) {}
