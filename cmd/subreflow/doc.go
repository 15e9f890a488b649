// Package main hosts the subreflow CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, opens the linguistic
// annotator and hands subtitle files or HTTP requests to the reflow pipeline.
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through commands or flags.
package main
