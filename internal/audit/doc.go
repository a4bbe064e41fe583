// Package audit implements async event dispatching for login, refresh and
// logout outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record with id, timestamp, type, account, tenant and reason.
//
// Events live only in memory and in whatever the caller's sink does with
// them; this package persists nothing.
//
// # What this package must NOT do
//
//   - Decide which events to emit. That belongs to the engine.
//   - Import the root package or any sibling internal package.
package audit
