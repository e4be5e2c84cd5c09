package domain

import "errors"

var (
	// ErrServiceUnavailable marks connection, timeout, or non-2xx failures
	// when talking to an external embedding or scoring service.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMalformedResponse marks a reply that arrived but could not be
	// parsed into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidQuery marks an empty or whitespace-only query.
	ErrInvalidQuery = errors.New("invalid query")
)
