package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. Match them with errors.Is against an *Error.
var (
	ErrTransport = errors.New("transport error")
	ErrStatus    = errors.New("unexpected status")
	ErrDecode    = errors.New("decode error")
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 4 << 10

// Error is returned by every Client method on failure.
type Error struct {
	// Reason names the failed operation, e.g. "login failed".
	Reason string
	// Kind is one of ErrTransport, ErrStatus or ErrDecode.
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrStatus:
		if e.Body != "" {
			return fmt.Sprintf("%s: %d %s: %s", e.Reason, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
		}
		return fmt.Sprintf("%s: %d %s", e.Reason, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: %v", e.Reason, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Reason, e.Kind)
	}
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 status failure.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == ErrStatus && apiErr.StatusCode == http.StatusNotFound
}
