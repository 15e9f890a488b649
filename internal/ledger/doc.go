// Package ledger records completed reflow runs in SQLite so repeated
// invocations on unchanged input can be skipped.
//
// A run is keyed by the SHA-256 of the input file plus a settings
// fingerprint; recording the same key again updates the existing row.
package ledger
