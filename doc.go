// Package campusAuth is the authentication and session lifecycle core of a
// multi-tenant campus platform.
//
// An account signs in with a bare email: the owning organization is found
// through a global email index, failed attempts are counted per email over a
// sliding window, the account's lifecycle state is checked, and a short-lived
// access token plus a single-use refresh token are issued. Refresh tokens
// rotate on every use; presenting a spent token is treated as theft.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// campusAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the [AuthError] taxonomy and value types. Flow orchestration and audit
// dispatch live under internal/. Persistence of organizations and accounts
// belongs to the host, which supplies [account.Lookup] and [tenant.Lookup];
// storage/sqlite is a ready-made implementation of both.
//
// # Errors
//
// Every failure is an *[AuthError]. Match kinds with errors.Is against the
// package sentinels:
//
//	res, err := engine.Login(ctx, email, pw)
//	switch {
//	case errors.Is(err, campusAuth.ErrRateLimited):
//		wait, _ := campusAuth.RateLimitWait(err)
//	case errors.Is(err, campusAuth.ErrInvalidCredentials):
//	}
package campusAuth
