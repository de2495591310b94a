// Package apierr is the error taxonomy shared by every pipeline stage.
// Reason is safe to show to a caller; Err carries diagnostics for logs only.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInput
	KindSafety
	KindQuota
	KindService
	KindMalformedOutput
	KindEducational
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input_error"
	case KindSafety:
		return "safety_rejection"
	case KindQuota:
		return "quota_exceeded"
	case KindService:
		return "service_error"
	case KindMalformedOutput:
		return "malformed_output"
	case KindEducational:
		return "educational_quality_failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; they match any Error of the same kind.
var (
	ErrInput           = &Error{Kind: KindInput}
	ErrSafety          = &Error{Kind: KindSafety}
	ErrQuota           = &Error{Kind: KindQuota}
	ErrService         = &Error{Kind: KindService}
	ErrMalformedOutput = &Error{Kind: KindMalformedOutput}
	ErrEducational     = &Error{Kind: KindEducational}
)

type Error struct {
	Kind   Kind
	Reason string
	Err    error
	// Final marks a failure that another attempt must not be made for.
	Final bool
}

func New(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Reason != "" && e.Err != nil:
		return e.Reason + ": " + e.Err.Error()
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Reason == "" && t.Err == nil
}

// Retryable reports whether a fresh generation attempt may fix the failure.
// Topic-level safety rejections never reach the generation loop; inside it a
// safety error is a vocabulary failure unless it is Final.
func (e *Error) Retryable() bool {
	if e.Final {
		return false
	}
	switch e.Kind {
	case KindService, KindMalformedOutput, KindSafety:
		return true
	default:
		return false
	}
}

func (e *Error) Status() int {
	switch e.Kind {
	case KindInput:
		return http.StatusBadRequest
	case KindSafety, KindEducational:
		return http.StatusUnprocessableEntity
	case KindQuota:
		return http.StatusTooManyRequests
	case KindService, KindMalformedOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ReasonOf returns the caller-safe reason for err, hiding internal detail
// for errors outside the taxonomy.
func ReasonOf(err error) string {
	if e, ok := As(err); ok && e.Reason != "" {
		return e.Reason
	}
	return "Failed to generate story. Please try again."
}

// StatusOf maps err to an HTTP status.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status()
	}
	return http.StatusInternalServerError
}
