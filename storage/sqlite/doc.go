// Package sqlite provides SQLite-backed auth persistence.
//
// A single [Store] implements the refresh-token store, the tenant lookup and
// the credential lookup, so a one-binary deployment can run without Redis or
// an external database. Timestamps are stored as UTC Unix milliseconds.
package sqlite
