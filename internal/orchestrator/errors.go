package orchestrator

import "errors"

// Turn failure classification. Every failed turn maps to exactly one of
// these; the fallback response records which one in its metadata so
// operators can tell a safety stop from an outage.
var (
	// ErrInputRejected: the input gate stopped the turn before any
	// retrieval or generation.
	ErrInputRejected = errors.New("input rejected")

	// ErrLowGrounding: retrieval could not produce enough relevant
	// material to generate safely.
	ErrLowGrounding = errors.New("insufficient grounding")

	// ErrUnroutable: no intent could be assigned, so the turn never
	// reached retrieval.
	ErrUnroutable = errors.New("unroutable intent")

	// ErrGenerationUnavailable: the generative call failed after
	// retries.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrOutputRejected: generated content failed the output gate.
	ErrOutputRejected = errors.New("output rejected")

	// ErrClassifierUnavailable: a safety-critical classifier was down,
	// so the turn failed closed.
	ErrClassifierUnavailable = errors.New("safety classifier unavailable")
)

// causeOf returns the metrics/metadata label for a classification error.
func causeOf(err error) string {
	switch {
	case errors.Is(err, ErrInputRejected):
		return "input_rejected"
	case errors.Is(err, ErrLowGrounding):
		return "low_grounding"
	case errors.Is(err, ErrUnroutable):
		return "unroutable"
	case errors.Is(err, ErrGenerationUnavailable):
		return "generation_unavailable"
	case errors.Is(err, ErrOutputRejected):
		return "output_rejected"
	case errors.Is(err, ErrClassifierUnavailable):
		return "classifier_unavailable"
	}
	return "unknown"
}
