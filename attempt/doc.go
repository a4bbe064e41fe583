// Package attempt tracks failed login attempts per identifier over a sliding window.
//
// # Policy
//
// The window slides: every check prunes timestamps older than now-window before
// counting, so a block lifts continuously as old failures age out instead of at
// fixed bucket boundaries. At most MaxAttempts timestamps are retained per key,
// which keeps the record bounded and makes the oldest retained timestamp the one
// whose expiry lifts the block.
//
// # Storage
//
// Records live behind the [Store] interface. [MemoryStore] is the default
// in-process backend; [RedisStore] shares counters across processes.
//
// # Concurrency
//
// Every mutation of a record is a single Store call: append, reserve, prune
// and remove. MemoryStore runs them under the lock of the shard the key hashes
// to; RedisStore runs each as one Lua script over a sorted set. Trackers in
// separate processes therefore stay linearizable per identifier.
//
// [Tracker.Reserve] counts an attempt before it is evaluated, so parallel
// guesses cannot all pass the budget check ahead of their failures being
// recorded.
//
// # What this package must NOT do
//
//   - Decide what an identifier is (the caller normalizes emails).
//   - Import campusAuth or any flow package.
package attempt
