package directory

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials indicates the configured basic-auth credentials
// were rejected by the remote directory.
var ErrInvalidCredentials = errors.New("invalid directory API credentials")

// ConnectionError wraps a transport-level failure (DNS, dial, timeout).
// Potentially retryable by the caller; the client never retries itself.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("directory connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response from the directory API. 4xx codes
// are not retryable without changed input; 5xx codes count as transport
// failures.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory API returned HTTP %d", e.Code)
}

// DecodeError is a malformed response body. Not retryable.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode directory response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport-level failure that the
// caller may choose to retry: a connection error or a 5xx response.
func IsTransport(err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code >= 500
}
