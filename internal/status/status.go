// Package status defines the error taxonomy shared by the request core,
// repository and server. Every fallible operation returns an error; callers
// classify with the Is* helpers rather than matching message text.
package status

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that branch on failure kind.
type Code int

const (
	// CodeInvalidArg marks a malformed or mismatched client request. Not
	// retryable without correcting the request.
	CodeInvalidArg Code = iota + 1
	// CodeNotFound marks a missing model, version, input or output.
	CodeNotFound
	// CodeAlreadyExists marks a double-registration or double-allocation.
	CodeAlreadyExists
	// CodeUnavailable marks a temporarily unusable server or backend.
	CodeUnavailable
	// CodeInternal marks a server-side failure.
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArg:
		return "INVALID_ARG"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeAlreadyExists:
		return "ALREADY_EXISTS"
	case CodeUnavailable:
		return "UNAVAILABLE"
	case CodeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error is a coded error. Allocator-originated failures are wrapped with
// CodeInternal and the cause preserved for errors.Unwrap.
type Error struct {
	Code  Code
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with a formatted message.
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, cause error, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...) + ": " + cause.Error(), cause: cause}
}

func InvalidArgf(format string, args ...any) error {
	return New(CodeInvalidArg, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return New(CodeNotFound, format, args...)
}

func AlreadyExistsf(format string, args ...any) error {
	return New(CodeAlreadyExists, format, args...)
}

func Unavailablef(format string, args ...any) error {
	return New(CodeUnavailable, format, args...)
}

func Internalf(format string, args ...any) error {
	return New(CodeInternal, format, args...)
}

func is(err error, code Code) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}

// IsInvalidArg reports whether err carries CodeInvalidArg.
func IsInvalidArg(err error) bool { return is(err, CodeInvalidArg) }

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsAlreadyExists reports whether err carries CodeAlreadyExists.
func IsAlreadyExists(err error) bool { return is(err, CodeAlreadyExists) }

// IsUnavailable reports whether err carries CodeUnavailable.
func IsUnavailable(err error) bool { return is(err, CodeUnavailable) }

// IsInternal reports whether err carries CodeInternal.
func IsInternal(err error) bool { return is(err, CodeInternal) }

// CodeOf extracts the Code from err, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}
