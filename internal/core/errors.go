package core

import "errors"

// Error taxonomy for the answering and ingestion pipelines. Callers match
// with errors.Is; lower layers wrap these with context via fmt.Errorf.
var (
	// ErrValidation marks malformed or missing input, rejected before any
	// side effect.
	ErrValidation = errors.New("validation failed")

	// ErrProvider marks an embedding call that failed (network, timeout,
	// quota).
	ErrProvider = errors.New("embedding provider call failed")

	// ErrGeneration marks a generative model call that failed. The chat
	// path surfaces it; retrieval-stage failures never do.
	ErrGeneration = errors.New("answer generation failed")

	// ErrNotFound marks a referenced conversation, document or FAQ that
	// does not exist under the caller's tenant.
	ErrNotFound = errors.New("not found")

	// ErrIngestion marks a terminal failure during async document
	// processing, recorded on the document and never retried.
	ErrIngestion = errors.New("document ingestion failed")

	// ErrForbidden marks an action the actor's role or tenant does not
	// permit.
	ErrForbidden = errors.New("forbidden")
)
