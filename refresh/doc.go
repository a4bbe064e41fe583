// Package refresh persists refresh-token records and implements the single-use
// rotation primitive the refresh flow relies on.
//
// # Storage
//
// Tokens are never stored in plaintext; every backend keys records by
// [HashToken]. A record keeps its owner, expiry, revoked flag and timestamps.
// Records are not deleted when revoked: revoked records stay visible so that a
// replayed token can be recognized as reuse, and [Store.Sweep] purges them later.
//
// # Backends
//
//   - [MemoryStore]: mutex-guarded maps, for single-process deployments and tests.
//   - [RedisStore]: hashes plus a per-account index, with Lua scripts making
//     revoke atomic.
//
// # What this package must NOT do
//
//   - Sign or parse tokens (see package jwt).
//   - Decide what happens on reuse; it only reports state.
package refresh
