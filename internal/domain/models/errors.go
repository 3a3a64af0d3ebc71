package models

import "errors"

// Failure modes of the AI forecast path. All of them are recovered by the
// forecast service, which substitutes the mock generator's output.
var (
	// ErrUnavailable indicates no AI credential is configured.
	ErrUnavailable = errors.New("ai forecast unavailable")
	// ErrTimeout indicates the model did not answer within the time bound.
	ErrTimeout = errors.New("ai forecast timed out")
	// ErrTransport covers network, HTTP status and SDK faults.
	ErrTransport = errors.New("ai transport error")
	// ErrMalformedResponse indicates no parseable JSON object was found.
	ErrMalformedResponse = errors.New("malformed ai response")
	// ErrValidation indicates a required field is missing or an enum is unknown.
	ErrValidation = errors.New("ai response failed validation")
)
