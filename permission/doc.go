// Package permission flattens role assignments into the permission list that
// access tokens carry, and answers membership checks against that list.
//
// Permission names are opaque strings such as "grades:write". The package
// never interprets them beyond exact, case-sensitive comparison.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import the root package, jwt, or middleware.
package permission
