package campusAuth

import (
	"io"
	"time"

	"github.com/MrEthical07/campusAuth/account"
	internalaudit "github.com/MrEthical07/campusAuth/internal/audit"
)

// LoginResult is returned by [Engine.Login] on success.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	User             UserInfo
}

// RefreshResult is returned by [Engine.Refresh]. The presented token is
// spent; only RefreshToken may be used for the next rotation.
type RefreshResult struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// UserInfo is the public projection of the authenticated account.
type UserInfo struct {
	AccountID   string
	FullName    string
	Email       string
	Status      account.Status
	Tenant      TenantInfo
	Roles       []string
	Permissions []string
}

// TenantInfo identifies the organization an account belongs to.
type TenantInfo struct {
	ID        string
	Name      string
	Subdomain string
}

// AuthResult is returned by [Engine.ValidateAccess]. It is built from the
// access token alone; no store is consulted.
type AuthResult struct {
	AccountID       string
	TenantID        string
	TenantSubdomain string
	Email           string
	FullName        string
	Status          string
	Roles           []string
	Permissions     []string
	ExpiresAt       time.Time
}

// LoginAttempts is the brute-force state of one identifier, as returned by
// [Engine.LoginAttempts].
type LoginAttempts struct {
	Attempts  int
	Remaining int
	Blocked   bool
	Wait      time.Duration
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that logs events through log/slog.
type SlogSink = internalaudit.SlogSink

// Audit event types.
const (
	AuditLoginSuccess       = internalaudit.EventLoginSuccess
	AuditLoginFailure       = internalaudit.EventLoginFailure
	AuditLoginRateLimited   = internalaudit.EventLoginRateLimited
	AuditRefreshSuccess     = internalaudit.EventRefreshSuccess
	AuditRefreshFailure     = internalaudit.EventRefreshFailure
	AuditRefreshReuse       = internalaudit.EventRefreshReuse
	AuditRefreshRateLimited = internalaudit.EventRefreshRateLimited
	AuditLogout             = internalaudit.EventLogout
	AuditLogoutAll          = internalaudit.EventLogoutAll
)

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
