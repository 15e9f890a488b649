// Package config loads, normalizes, and validates subreflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// reflow pipeline, the CLI and the HTTP server need: line width, timing
// constraints, annotator backend, integrity mode, and output locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
