// Package pipeline evaluates a single submitted image.
//
// Run performs, in order: load the source once, fingerprint the original,
// grayscale and blur it, run both decoders, run the square-ish fallback and
// render every finding onto a copy of the original. The outcome is an
// immutable Result; identical input bytes yield identical Results apart from
// the artefact path.
//
// Result is JSON-serialisable so that a separate worker process can hand it
// back over stdout.
package pipeline
