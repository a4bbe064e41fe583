package campusAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/MrEthical07/campusAuth/account"
	"github.com/MrEthical07/campusAuth/attempt"
	internalaudit "github.com/MrEthical07/campusAuth/internal/audit"
	"github.com/MrEthical07/campusAuth/internal/flows"
	"github.com/MrEthical07/campusAuth/internal/rate"
	"github.com/MrEthical07/campusAuth/jwt"
	"github.com/MrEthical07/campusAuth/password"
	"github.com/MrEthical07/campusAuth/refresh"
	"github.com/MrEthical07/campusAuth/tenant"
)

// Engine authenticates accounts and manages the refresh-token lifecycle.
//
// Engine is built once with [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config   Config
	flows    flows.Service
	tracker  *attempt.Tracker
	resolver *tenant.Resolver
	accounts account.Lookup
	codec    *jwt.Codec
	tokens   refresh.Store
	hasher   password.Hasher
	throttle *rate.Throttle
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	sweeper  *sweeper
}

// Close stops the sweeper and drains the audit dispatcher. It is safe to
// call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.sweeper != nil {
		e.sweeper.stop()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login authenticates email and password and issues a token pair.
//
// Every rejection after the rate check counts against the email's attempt
// budget. Unknown emails, unknown tenants and wrong passwords all return
// ErrInvalidCredentials. Lifecycle and tenant refusals return an
// InvalidState error whose Reason names the state.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	ctx, span := e.startSpan(ctx, spanLogin)
	defer span.End()

	start := time.Now()
	res := e.flows.Login(ctx, email, password)
	e.metrics.Observe(MetricLoginLatency, time.Since(start))

	if err := e.loginFailure(ctx, res); err != nil {
		endSpan(span, err)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, internalaudit.EventLoginSuccess, true, res.Account.ID, res.Tenant.ID, res.Identifier, "", nil)
	e.logger.DebugContext(ctx, "campusAuth: login succeeded",
		"account_id", res.Account.ID,
		"tenant_id", res.Tenant.ID,
	)
	endSpan(span, nil, accountAttrs(res.Account.ID, res.Tenant.ID)...)

	return &LoginResult{
		AccessToken:      res.Tokens.AccessToken,
		RefreshToken:     res.Tokens.RefreshToken,
		AccessExpiresAt:  res.Tokens.AccessExpiresAt,
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		User:             userInfo(res.Account, res.Tenant, res.Permissions),
	}, nil
}

func (e *Engine) loginFailure(ctx context.Context, res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureNone:
		return nil
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, internalaudit.EventLoginRateLimited, false, "", "", res.Identifier, "rate_limited", func() map[string]string {
			return map[string]string{"wait_ms": fmt.Sprint(res.Wait.Milliseconds())}
		})
		e.logger.InfoContext(ctx, "campusAuth: login blocked",
			"identifier", redactEmail(res.Identifier),
			"wait", res.Wait,
		)
		return &AuthError{Kind: KindRateLimited, Wait: res.Wait}
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, internalaudit.EventLoginFailure, false, res.Account.ID, res.Tenant.ID, res.Identifier, res.Reason, nil)
		return newAuthError(KindInvalidCredentials, "", res.Err)
	case flows.LoginFailureTenantInactive, flows.LoginFailureAccountState:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricLoginInvalidState)
		e.emitAudit(ctx, internalaudit.EventLoginFailure, false, res.Account.ID, res.Tenant.ID, res.Identifier, res.Reason, nil)
		return newAuthError(KindInvalidState, res.Reason, res.Err)
	case flows.LoginFailureUnrecognizedState:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, internalaudit.EventLoginFailure, false, res.Account.ID, res.Tenant.ID, res.Identifier, res.Reason, nil)
		e.logger.ErrorContext(ctx, "campusAuth: account has unrecognized lifecycle state",
			"account_id", res.Account.ID,
			"status", res.Account.Status.String(),
		)
		return newAuthError(KindUnrecognized, "", res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricLoginUnavailable)
		e.emitAudit(ctx, internalaudit.EventLoginFailure, false, res.Account.ID, res.Tenant.ID, res.Identifier, res.Reason, nil)
		e.logger.ErrorContext(ctx, "campusAuth: login backend failure",
			"reason", res.Reason,
			"identifier", redactEmail(res.Identifier),
			"error", res.Err,
		)
		return newAuthError(KindUnavailable, "", res.Err)
	}
}

// Refresh consumes refreshToken and issues a new pair. A token can be
// exchanged once: concurrent calls with the same token see exactly one
// success. Presenting an already-rotated token revokes every refresh token
// of its account when reuse detection is enabled.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	ctx, span := e.startSpan(ctx, spanRefresh)
	defer span.End()

	res := e.flows.Refresh(ctx, refreshToken)
	if err := e.refreshFailure(ctx, res); err != nil {
		endSpan(span, err, accountAttrs(res.AccountID, res.TenantID)...)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, internalaudit.EventRefreshSuccess, true, res.AccountID, res.TenantID, "", "", nil)
	endSpan(span, nil, accountAttrs(res.AccountID, res.TenantID)...)

	return &RefreshResult{
		AccessToken:      res.Tokens.AccessToken,
		RefreshToken:     res.Tokens.RefreshToken,
		AccessExpiresAt:  res.Tokens.AccessExpiresAt,
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
	}, nil
}

func (e *Engine) refreshFailure(ctx context.Context, res flows.RefreshResult) error {
	reason := refreshReason(res)
	switch res.Failure {
	case flows.RefreshFailureNone:
		return nil
	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, internalaudit.EventRefreshRateLimited, false, res.AccountID, "", "", reason, nil)
		return &AuthError{Kind: KindRateLimited, Wait: res.Wait, Err: res.Err}
	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.metrics.Add(MetricTokensRevoked, uint64(res.RevokedOnReuse))
		e.emitAudit(ctx, internalaudit.EventRefreshReuse, false, res.AccountID, "", "", reason, func() map[string]string {
			return map[string]string{"revoked": fmt.Sprint(res.RevokedOnReuse)}
		})
		e.logger.WarnContext(ctx, "campusAuth: refresh token reuse detected",
			"account_id", res.AccountID,
			"revoked", res.RevokedOnReuse,
		)
		return newAuthError(KindInvalidToken, "", res.Err)
	case flows.RefreshFailureAccountState, flows.RefreshFailureTenantInactive:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, internalaudit.EventRefreshFailure, false, res.AccountID, res.TenantID, "", reason, nil)
		return newAuthError(KindInvalidState, res.Reason, res.Err)
	case flows.RefreshFailureStore, flows.RefreshFailureIssue:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, internalaudit.EventRefreshFailure, false, res.AccountID, res.TenantID, "", reason, nil)
		e.logger.ErrorContext(ctx, "campusAuth: refresh backend failure",
			"reason", reason,
			"account_id", res.AccountID,
			"error", res.Err,
		)
		return newAuthError(KindUnavailable, "", res.Err)
	default:
		if res.Failure == flows.RefreshFailureRaceLost {
			e.metricInc(MetricRefreshRaceLost)
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, internalaudit.EventRefreshFailure, false, res.AccountID, res.TenantID, "", reason, nil)
		return newAuthError(KindInvalidToken, "", res.Err)
	}
}

// Logout revokes refreshToken. It never fails: blank tokens are ignored and
// store errors are logged.
func (e *Engine) Logout(ctx context.Context, refreshToken string) {
	if e == nil || !e.flows.Initialized() {
		return
	}
	ctx, span := e.startSpan(ctx, spanLogout)
	defer span.End()

	res := e.flows.Logout(ctx, refreshToken)
	if res.Skipped {
		endSpan(span, nil, outcomeAttr("skipped"))
		return
	}
	if res.Err != nil {
		e.logger.WarnContext(ctx, "campusAuth: logout revoke failed",
			"account_id", res.AccountID,
			"error", res.Err,
		)
		endSpan(span, res.Err)
		return
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, internalaudit.EventLogout, true, res.AccountID, "", "", "", func() map[string]string {
		return map[string]string{"revoked": fmt.Sprint(res.Revoked)}
	})
	endSpan(span, nil, accountAttrs(res.AccountID, "")...)
}

// LogoutAll revokes every usable refresh token of accountID and returns how
// many were revoked.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) (int, error) {
	if e == nil || !e.flows.Initialized() {
		return 0, ErrEngineNotReady
	}
	ctx, span := e.startSpan(ctx, spanLogoutAll)
	defer span.End()

	n, err := e.flows.LogoutAll(ctx, accountID)
	if err != nil {
		e.logger.ErrorContext(ctx, "campusAuth: logout all failed",
			"account_id", accountID,
			"error", err,
		)
		authErr := newAuthError(KindUnavailable, "", err)
		endSpan(span, authErr)
		return n, authErr
	}
	e.metricInc(MetricLogoutAll)
	e.metrics.Add(MetricTokensRevoked, uint64(n))
	e.emitAudit(ctx, internalaudit.EventLogoutAll, true, accountID, "", "", "", func() map[string]string {
		return map[string]string{"revoked": fmt.Sprint(n)}
	})
	endSpan(span, nil, accountAttrs(accountID, "")...)
	return n, nil
}

// ValidateAccess verifies an access token, with or without a "Bearer "
// prefix, and returns its claims. No store is consulted, so a token stays
// valid until it expires even after logout.
func (e *Engine) ValidateAccess(_ context.Context, token string) (*AuthResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	res := e.flows.ValidateAccess(token)
	if res.Failure != flows.ValidateFailureNone {
		return nil, newAuthError(KindInvalidToken, "", res.Err)
	}
	return authResultFromClaims(res.Claims), nil
}

// LoginAttempts reports the brute-force state of email.
func (e *Engine) LoginAttempts(ctx context.Context, email string) (LoginAttempts, error) {
	if e == nil || e.tracker == nil {
		return LoginAttempts{}, ErrEngineNotReady
	}
	st, err := e.tracker.Snapshot(ctx, account.NormalizeEmail(email))
	if err != nil {
		return LoginAttempts{}, newAuthError(KindUnavailable, "", err)
	}
	return LoginAttempts{
		Attempts:  st.Attempts,
		Remaining: st.Remaining,
		Blocked:   st.Blocked,
		Wait:      st.Wait,
	}, nil
}

// TenantBySubdomain looks up an organization by its subdomain. Unknown
// subdomains return ErrNotFound.
func (e *Engine) TenantBySubdomain(ctx context.Context, subdomain string) (TenantInfo, error) {
	if e == nil || e.resolver == nil {
		return TenantInfo{}, ErrEngineNotReady
	}
	t, err := e.resolver.ResolveBySubdomain(ctx, subdomain)
	switch {
	case err == nil:
		return TenantInfo{ID: t.ID, Name: t.Name, Subdomain: t.Subdomain}, nil
	case isNotFound(err):
		return TenantInfo{}, newAuthError(KindNotFound, "", err)
	default:
		return TenantInfo{}, newAuthError(KindUnavailable, "", err)
	}
}

// HashPassword hashes plaintext with the engine's password hasher, for
// hosts that create accounts.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plaintext)
}

// SweepRefreshTokens purges expired refresh records and revoked records past
// the retention window. It returns the number removed.
func (e *Engine) SweepRefreshTokens(ctx context.Context) (int, error) {
	if e == nil || e.tokens == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.tokens.Sweep(ctx, e.now())
	e.metrics.Add(MetricTokensSwept, uint64(n))
	if err != nil {
		return n, newAuthError(KindUnavailable, "", err)
	}
	return n, nil
}

// issue mints an access/refresh pair and persists the refresh record.
func (e *Engine) issue(ctx context.Context, id account.Identity, t tenant.Tenant, permissions []string) (flows.TokenPair, error) {
	claims := jwt.AccessClaims{
		UserID:          id.ID,
		TenantID:        t.ID,
		TenantSubdomain: t.Subdomain,
		FullName:        id.FullName,
		Roles:           id.RoleNames(),
		Permissions:     permissions,
		AccountStatus:   id.Status.String(),
	}
	claims.Subject = id.Email

	access, accessExp, err := e.codec.SignAccess(claims)
	if err != nil {
		return flows.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, refreshExp, err := e.codec.SignRefresh(id.ID)
	if err != nil {
		return flows.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := e.tokens.Save(ctx, refreshToken, id.ID, refreshExp); err != nil {
		return flows.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return flows.TokenPair{
		AccessToken:      access,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func userInfo(id account.Identity, t tenant.Tenant, permissions []string) UserInfo {
	return UserInfo{
		AccountID: id.ID,
		FullName:  id.FullName,
		Email:     id.Email,
		Status:    id.Status,
		Tenant: TenantInfo{
			ID:        t.ID,
			Name:      t.Name,
			Subdomain: t.Subdomain,
		},
		Roles:       id.RoleNames(),
		Permissions: permissions,
	}
}

func authResultFromClaims(c *jwt.AccessClaims) *AuthResult {
	res := &AuthResult{
		AccountID:       c.UserID,
		TenantID:        c.TenantID,
		TenantSubdomain: c.TenantSubdomain,
		Email:           c.Subject,
		FullName:        c.FullName,
		Status:          c.AccountStatus,
		Roles:           c.Roles,
		Permissions:     c.Permissions,
	}
	if c.ExpiresAt != nil {
		res.ExpiresAt = c.ExpiresAt.Time
	}
	return res
}

func isNotFound(err error) bool {
	return errors.Is(err, tenant.ErrNotFound) || errors.Is(err, account.ErrNotFound)
}
