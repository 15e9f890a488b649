// Package timing assigns start and end times to reflowed cues.
//
// Two strategies share the Strategy interface. Synthesizer regenerates
// timings from text length and reading speed. Normalizer keeps the source
// timings and repairs them with a fixed sequence of passes. Both clip an end
// time to the following cue's start minus the transition gap.
package timing
