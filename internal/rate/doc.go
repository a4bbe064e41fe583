// Package rate provides the per-key token-bucket throttle applied to refresh
// requests.
//
// Each key (an account id) owns a golang.org/x/time/rate limiter created on
// first use. Limiters idle for longer than the configured idle period are
// dropped once the registry grows past its soft cap, so memory stays bounded
// by the number of recently active accounts.
//
// # What this package must NOT do
//
//   - Track login failures (see package attempt).
//   - Be imported outside the campusAuth module.
package rate
