// Package errors is the coded error type shared by the facade, its
// transports and the journal. Import it as perr.
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure for callers, HTTP and the CLI exit status.
// The numeric values are internal; the wire carries the String form.
type ErrorCode uint16

const (
	// ErrorCodeUnknown is the catch-all
	ErrorCodeUnknown ErrorCode = iota
	// ErrorCodeInvalidInput: the image cannot produce a handle or has zero area
	ErrorCodeInvalidInput
	// ErrorCodeConfiguration: invalid or contradictory request configuration
	ErrorCodeConfiguration
	// ErrorCodeNative: the detection framework reported a failure; the cause is kept
	ErrorCodeNative
	// ErrorCodeCanceled: the caller gave up before the framework answered
	ErrorCodeCanceled
	// ErrorCodePanic: recovered by middleware
	ErrorCodePanic
	// ErrorCodeUnavailable: transient, retry may succeed
	ErrorCodeUnavailable
	// ErrorCodeValidation: a transport payload failed validation
	ErrorCodeValidation
	// ErrorCodeJSON: a payload did not parse
	ErrorCodeJSON
	// ErrorCodeNotFound: missing resource
	ErrorCodeNotFound
	// ErrorCodeDB: journal storage failure
	ErrorCodeDB

	codeCount
)

var codes = [codeCount]struct {
	name   string
	status int
}{
	ErrorCodeUnknown:       {"unknown", http.StatusInternalServerError},
	ErrorCodeInvalidInput:  {"invalid_input", http.StatusUnprocessableEntity},
	ErrorCodeConfiguration: {"configuration", http.StatusBadRequest},
	ErrorCodeNative:        {"native", http.StatusBadGateway},
	ErrorCodeCanceled:      {"canceled", http.StatusGatewayTimeout},
	ErrorCodePanic:         {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:   {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeValidation:    {"validation", http.StatusBadRequest},
	ErrorCodeJSON:          {"json", http.StatusBadRequest},
	ErrorCodeNotFound:      {"not_found", http.StatusNotFound},
	ErrorCodeDB:            {"db", http.StatusInternalServerError},
}

// String is the stable short name used in logs, metric labels and JSON
func (c ErrorCode) String() string {
	if c >= codeCount {
		return codes[ErrorCodeUnknown].name
	}
	return codes[c].name
}

// MarshalText writes the short name
func (c ErrorCode) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts a short name; anything unrecognised becomes Unknown
func (c *ErrorCode) UnmarshalText(b []byte) error {
	*c = ParseCode(string(b))
	return nil
}

// ParseCode is the inverse of String
func ParseCode(s string) ErrorCode {
	for i := range codeCount {
		if codes[i].name == s {
			return i
		}
	}
	return ErrorCodeUnknown
}

// HTTPStatusCode maps a code to its response status
func HTTPStatusCode(c ErrorCode) int {
	if c >= codeCount {
		return http.StatusInternalServerError
	}
	return codes[c].status
}

// ErrNotFound is the bare not found sentinel
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error carries a code and an optional field and operation label on top of
// a wrapped cause. msg is for people, code for machines.
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.orig == nil:
		return e.msg
	default:
		return e.msg + ": " + e.orig.Error()
	}
}

func (e *Error) Unwrap() error { return e.orig }

// Code is the machine-facing classification
func (e *Error) Code() ErrorCode { return e.code }

// Field names the offending input, if any
func (e *Error) Field() string { return e.field }

// Op is the operation label, if set
func (e *Error) Op() string { return e.op }

// Wire is the error part of a JSON response
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// ToWire renders the full message chain
func (e *Error) ToWire() Wire {
	return Wire{Code: e.code, Message: e.Error(), Field: e.field}
}

// WireFrom renders any error; foreign errors become Unknown and nil the zero Wire
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// HTTP is the status and wire pair for a handler reply
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// Root follows Unwrap to the innermost cause
func Root(err error) error {
	for err != nil {
		next := stderrs.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return err
}

// As finds the outermost *Error in the chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf is Unknown for errors that are not ours
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// edit copies the *Error in err, applies fn and returns the copy.
// Foreign errors come back unchanged.
func edit(err error, fn func(*Error)) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	fn(&c)
	return &c
}

// WithField tags the offending input
func WithField(err error, field string) error {
	return edit(err, func(e *Error) { e.field = field })
}

// WithOp tags the operation that failed
func WithOp(err error, op string) error {
	return edit(err, func(e *Error) { e.op = op })
}

func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

func Newf(code ErrorCode, format string, a ...any) error {
	return New(code, fmt.Sprintf(format, a...))
}

func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return Wrap(orig, code, fmt.Sprintf(format, a...))
}

// WrapIf is Wrap for a possibly nil err
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Native tags a framework failure and keeps the cause reachable.
// Errors that already carry a code pass through.
func Native(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Wrap(err, ErrorCodeNative, "detection framework failed")
}

func InvalidInputf(format string, a ...any) error { return Newf(ErrorCodeInvalidInput, format, a...) }
func Configurationf(format string, a ...any) error { return Newf(ErrorCodeConfiguration, format, a...) }
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }
func DBf(format string, a ...any) error { return Newf(ErrorCodeDB, format, a...) }
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }
