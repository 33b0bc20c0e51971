// Package observer delegates task decomposition and alignment checking to
// the locally hosted Observer model, reached over its OpenAI-compatible
// chat completions API.
//
// The package owns no task state. The Decomposer turns a raw request into a
// four-section acceptance-criteria record; the Checker produces an advisory
// pass/fail-with-reasons verdict for a submission. Both translate transport
// failures into the package error taxonomy at the boundary, so raw client
// errors never reach callers.
package observer
