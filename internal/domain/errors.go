package domain

import "errors"

// Error kinds surfaced at the turn boundary. Every failure inside a turn is
// wrapped in exactly one of these before it reaches the calling layer, so
// transports can map them to status codes with errors.Is.
var (
	// ErrPersonaNotFound: the persona id does not resolve. Raised before
	// any state-machine transition occurs.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrGeneration: the response generator failed or timed out.
	ErrGeneration = errors.New("response generation failed")

	// ErrRetrieval: the retrieval service failed or timed out.
	ErrRetrieval = errors.New("context retrieval failed")

	// ErrPersistence: a checkpoint load, commit, or delete failed.
	ErrPersistence = errors.New("conversation persistence failed")

	// ErrSessionExpired: a lookup required a live session and found an
	// expired or absent one.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidRequest: the turn request is malformed.
	ErrInvalidRequest = errors.New("invalid turn request")
)
