package internaldefs

import (
	"strconv"

	campusAuth "github.com/MrEthical07/campusAuth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   campusAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   campusAuth.MetricID
	Name string
	Help string
}

// Dispatcher drop counter, exported next to the engine counters.
const (
	AuditDroppedName = "campusauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: campusAuth.MetricLoginSuccess, Name: "campusauth_login_success_total", Help: "Successful logins."},
	{ID: campusAuth.MetricLoginFailure, Name: "campusauth_login_failure_total", Help: "Rejected logins, rate-limited ones excluded."},
	{ID: campusAuth.MetricLoginRateLimited, Name: "campusauth_login_rate_limited_total", Help: "Logins refused because the email was blocked."},
	{ID: campusAuth.MetricLoginInvalidState, Name: "campusauth_login_invalid_state_total", Help: "Logins refused for account or organization state."},
	{ID: campusAuth.MetricLoginUnavailable, Name: "campusauth_login_unavailable_total", Help: "Logins failed closed on a backend error."},
	{ID: campusAuth.MetricRefreshSuccess, Name: "campusauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: campusAuth.MetricRefreshFailure, Name: "campusauth_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: campusAuth.MetricRefreshReuseDetected, Name: "campusauth_refresh_reuse_detected_total", Help: "Presentations of an already rotated refresh token."},
	{ID: campusAuth.MetricRefreshRateLimited, Name: "campusauth_refresh_rate_limited_total", Help: "Throttled refresh requests."},
	{ID: campusAuth.MetricRefreshRaceLost, Name: "campusauth_refresh_race_lost_total", Help: "Concurrent refreshes that lost the single-use race."},
	{ID: campusAuth.MetricLogout, Name: "campusauth_logout_total", Help: "Single-token logouts."},
	{ID: campusAuth.MetricLogoutAll, Name: "campusauth_logout_all_total", Help: "Logout-all operations."},
	{ID: campusAuth.MetricTokensRevoked, Name: "campusauth_tokens_revoked_total", Help: "Refresh tokens revoked in bulk."},
	{ID: campusAuth.MetricTokensSwept, Name: "campusauth_tokens_swept_total", Help: "Refresh records purged by the sweeper."},
}

var HistogramDefs = []HistogramDef{
	{ID: campusAuth.MetricLoginLatency, Name: "campusauth_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BucketLabel renders the upper bound of bucket i the way Prometheus writes
// its le label: shortest float form, "+Inf" for the overflow bucket.
func BucketLabel(i int) string {
	if i >= len(HistogramUpperBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(HistogramUpperBounds[i], 'g', -1, 64)
}

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [campusAuth.HistogramBucketCount]uint64 {
	var out [campusAuth.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [campusAuth.HistogramBucketCount]uint64) [campusAuth.HistogramBucketCount]uint64 {
	var out [campusAuth.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
