// Package pipeline drives one reflow run: annotate and select line breaks for
// every cue in parallel, fold the timing strategy over the result in order,
// then verify the transcript.
package pipeline
