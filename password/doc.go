// Package password implements password hashing and verification.
//
// # Output format
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Imported accounts may carry bcrypt hashes ($2a$, $2b$, $2y$). [Auto]
// verifies both, dispatching on the prefix, and reports bcrypt hashes as
// needing an upgrade so callers can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Enforce password complexity.
//   - Log plaintext passwords or hash parameters.
package password
