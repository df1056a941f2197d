package extract

import "errors"

var (
	// ErrEventNotFound means no line in the main text names the event
	// together with a confirming token. No record can be built.
	ErrEventNotFound = errors.New("event not found")

	// ErrSourceUnavailable wraps a failed retrieval of one item source.
	// The chain treats it as an empty source and moves on.
	ErrSourceUnavailable = errors.New("source unavailable")
)
