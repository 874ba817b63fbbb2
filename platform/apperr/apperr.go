// Package apperr defines the typed errors services return so the HTTP layer
// can choose a status without knowing which store or transport failed.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error for status mapping and logging.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	// KindUnavailable means the whatsapp transport or a store could not be reached.
	KindUnavailable
	KindInternal
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindValidation:   "validation",
	KindNotFound:     "not_found",
	KindConflict:     "conflict",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindUnavailable:  "unavailable",
	KindInternal:     "internal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Status is the HTTP status for the kind. Unknown kinds are server errors.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind, a client-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
	Details any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error's kind to a status code.
func (e *Error) HTTPStatus() int { return e.Kind.Status() }

// PublicMessage is what a client may see. Server-side failures never expose
// their message, since it can contain query or transport detail.
func (e *Error) PublicMessage() string {
	if e.HTTPStatus() >= http.StatusInternalServerError && e.Kind != KindUnavailable {
		return "internal error"
	}
	return e.Message
}

func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Internal(message string) *Error   { return New(KindInternal, message) }

// Unavailable wraps a failure to reach an external dependency.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
