// Package account defines the identity model consumed by the campusAuth login and
// refresh flows: identities, their lifecycle state, and role assignments.
//
// # Lifecycle
//
// An identity is in exactly one [Status]. Only [StatusActive] may authenticate;
// every other state blocks login until an explicit transition happens outside
// this module (email verification, guardian consent, admin reactivation).
//
// # Architecture boundaries
//
// This package is a pure data model plus the [Lookup] collaborator interface. The
// persistence of identities belongs to the host application.
//
// # What this package must NOT do
//
//   - Hash or compare passwords.
//   - Import campusAuth, jwt, or refresh.
package account
