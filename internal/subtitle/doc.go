// Package subtitle reads and writes subtitle containers and owns the
// ".adjusted" output naming convention.
//
// Parsing and rendering are delegated to go-astisub. Cue text is flattened to
// plain lines; styling is dropped.
package subtitle
