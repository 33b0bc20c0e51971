package observer

import "errors"

var (
	// ErrCompletion indicates the completion service call itself failed
	// (transport error, overload, or timeout).
	ErrCompletion = errors.New("completion request failed")

	// ErrDecomposition indicates criteria generation failed or produced
	// unparseable output. Retriable by re-invoking decomposition.
	ErrDecomposition = errors.New("decomposition failed")

	// ErrNoCriteriaSections indicates the model response contained no
	// recognizable criteria structure.
	ErrNoCriteriaSections = errors.New("no criteria sections found in response")

	// ErrAlignmentCheck indicates the advisory alignment check failed.
	// Callers treat this as non-fatal and proceed to Validator review.
	ErrAlignmentCheck = errors.New("alignment check failed")
)
