package campusAuth

import (
	"context"
	"strings"
	"unicode/utf8"

	internalaudit "github.com/MrEthical07/campusAuth/internal/audit"
	"github.com/MrEthical07/campusAuth/internal/flows"
)

var refreshReasons = map[flows.RefreshFailureKind]string{
	flows.RefreshFailureDecode:         "decode_failed",
	flows.RefreshFailureRateLimited:    "rate_limited",
	flows.RefreshFailureNotFound:       "token_not_found",
	flows.RefreshFailureExpired:        "token_expired",
	flows.RefreshFailureReuse:          "token_reused",
	flows.RefreshFailureOwnerMismatch:  "owner_mismatch",
	flows.RefreshFailureRaceLost:       "race_lost",
	flows.RefreshFailureStore:          "store_unavailable",
	flows.RefreshFailureAccountMissing: "account_not_found",
	flows.RefreshFailureIssue:          "issue_tokens",
}

// refreshReason prefers the lifecycle reason set by the flow.
func refreshReason(res flows.RefreshResult) string {
	if res.Reason != "" {
		return res.Reason
	}
	return refreshReasons[res.Failure]
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	tenantID string,
	identifier string,
	reason string,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.NewEvent(eventType, e.now())
	event.AccountID = accountID
	event.TenantID = tenantID
	event.Identifier = redactEmail(identifier)
	event.Success = success
	event.Reason = reason
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	addMeta := func(k, v string) {
		if v == "" {
			return
		}
		if event.Metadata == nil {
			event.Metadata = make(map[string]string, 2)
		}
		event.Metadata[k] = v
	}
	addMeta("request_id", requestIDFromContext(ctx))
	addMeta("trace_id", traceIDFromContext(ctx))

	e.audit.Emit(ctx, event)
}

// redactEmail keeps the first rune of the local part and the domain:
// "alice@uni.edu" becomes "a***@uni.edu".
func redactEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		r, _ := utf8.DecodeRuneInString(email)
		return string(r) + "***"
	}
	r, _ := utf8.DecodeRuneInString(email)
	return string(r) + "***" + email[at:]
}
