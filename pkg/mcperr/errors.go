package mcperr

import (
	"errors"
	"fmt"
)

// Error is a coded error returned by the sheet operations. Two errors are
// considered equal by errors.Is when their codes match.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &Error{Code: NotFound}
	ErrUnsupportedFormat = &Error{Code: UnsupportedFormat}
	ErrParse             = &Error{Code: ParseError}
	ErrWriteFailed       = &Error{Code: WriteFailed}
	ErrValidation        = &Error{Code: Validation}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		if entry, ok := catalog[e.Code]; ok {
			msg = entry.Message
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Errorf builds a coded error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to a cause.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func messageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return msg + ": " + e.Err.Error()
	}
	return msg
}
