// Package preflight verifies that the environment can run a reflow before any
// subtitle is touched: writable directories, the run ledger, the annotator's
// interpreter and a round trip through the annotator itself.
package preflight
