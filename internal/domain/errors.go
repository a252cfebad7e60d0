package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for server operations
var (
	// ErrServerOffline indicates the download server is unreachable
	ErrServerOffline = errors.New("download server is unreachable")

	// ErrAuthRequired indicates the server wants the caller to log in again
	ErrAuthRequired = errors.New("server requires authentication")

	// ErrMalformedResponse indicates the response body had an unexpected shape
	ErrMalformedResponse = errors.New("unexpected data received from the server")

	// ErrRejected indicates a well-formed response that reported failure
	ErrRejected = errors.New("server rejected the request")

	// ErrItemNotFound indicates the local ID is not part of the current queue
	ErrItemNotFound = errors.New("queue item not found")

	// ErrNoFile indicates the item has no finished file to delete
	ErrNoFile = errors.New("queue item has no finished file")
)

// TransportError wraps network and connectivity failures.
// It matches ErrServerOffline.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrServerOffline, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrServerOffline
}

// ProtocolError reports a response that is not JSON or lacks the expected envelope.
// It matches ErrMalformedResponse.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrMalformedResponse)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrMalformedResponse, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// ApplicationError reports a response that signalled failure: success=false
// or a non-2xx status. A 401 additionally matches ErrAuthRequired.
type ApplicationError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return fmt.Sprintf("%s: %v", e.Op, ErrAuthRequired)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status code: %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, ErrRejected)
	}
}

func (e *ApplicationError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return true
	case ErrAuthRequired:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// ErrorKind returns a short label for the class of a server error
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrServerOffline):
		return "network"
	case errors.Is(err, ErrMalformedResponse):
		return "protocol"
	case errors.Is(err, ErrAuthRequired):
		return "auth"
	case errors.Is(err, ErrRejected):
		return "server"
	default:
		return "error"
	}
}
