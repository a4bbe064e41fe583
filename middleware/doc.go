// Package middleware exposes net/http adapters over campusAuth.Engine.
//
// # Guards
//
//   - [Guard] verifies the bearer access token and stores the result in the
//     request context.
//   - [RequirePermission] rejects requests whose token lacks a permission.
//   - [StatusFor] maps engine errors to HTTP status codes for handlers that
//     call Login or Refresh directly.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the refresh store; access validation is stateless.
package middleware
