// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunValidateAccess)
// accepts a typed dependency struct and returns a result carrying either the
// payload or a failure kind. The root package maps failure kinds to public
// errors, metrics and audit events, so flows never import it.
//
// # Architecture boundaries
//
// Flows coordinate the attempt tracker, tenant resolver, credential lookup,
// password hasher, token codec and refresh store through function fields.
// They own none of these resources.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package (to avoid import cycles).
//   - Log emails in clear text. Warn receives redacted identifiers only.
package flows
