// Package jwt signs and verifies the bearer tokens issued by campusAuth.
//
// Access tokens are short-lived and carry the identity, tenant, roles, flattened
// permissions and lifecycle state of the account. Refresh tokens carry only the
// account id, the "refresh" type marker and a random jti, which limits what a
// leaked refresh token reveals.
//
// # What this package must NOT do
//
//   - Persist tokens or track revocation (see package refresh).
//   - Import campusAuth or any store package.
package jwt
