// Package internal holds campusAuth components that are not part of the
// public API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestration of login, refresh, logout and validation
//   - rate: per-key token-bucket throttle for refresh
//
// Nothing here may be imported from outside the campusAuth module; the root
// package re-exports what hosts need as aliases.
package internal
