package airquality

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch failed.
type ErrorKind int

const (
	// ErrorTransport covers unreachable network, DNS, timeouts and an open breaker.
	ErrorTransport ErrorKind = iota
	// ErrorHTTP is a non-2xx response.
	ErrorHTTP
	// ErrorProtocol is malformed JSON or an unexpected envelope shape.
	ErrorProtocol
	// ErrorSemantic is a well-formed envelope whose status is not "ok".
	ErrorSemantic
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTransport:
		return "transport"
	case ErrorHTTP:
		return "http"
	case ErrorProtocol:
		return "protocol"
	case ErrorSemantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// FailureMessage is the only failure text shown to end users.
const FailureMessage = "Air quality data is currently unavailable. Please try again later."

// FetchError is returned by providers. Err carries the diagnostic cause and is
// only ever logged.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == ErrorHTTP {
		return fmt.Sprintf("%s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err with a failure kind.
func NewFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// KindOf reports the failure kind of err. Errors that did not come from a
// provider are treated as transport failures.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrorTransport
}
