package analysis

import "errors"

var (
	// ErrRejected reports a content-safety or policy rejection.
	ErrRejected = errors.New("analysis rejected")
	// ErrResponseInvalid reports a reply that holds no usable report.
	ErrResponseInvalid = errors.New("analysis response invalid")
	// ErrTransport reports a failed call to the analysis engine.
	ErrTransport = errors.New("analysis transport error")
)
