// Package apperr defines the closed set of error kinds surfaced to the user.
// Every failure that crosses a component boundary is one of these four kinds;
// anything else is a bug.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// FileNotFound - the configuration path is unreadable.
	FileNotFound Kind = iota
	// FailedToParseConfig - JSON parse or URL join failure.
	FailedToParseConfig
	// ValidationError - semantic configuration violation, processor/builder
	// failure, or missing response at diff time.
	ValidationError
	// Exception - unexpected runtime failure.
	Exception
)

func (k Kind) String() string {
	switch k {
	case FileNotFound:
		return "file not found"
	case FailedToParseConfig:
		return "bad file format"
	case ValidationError:
		return "validation error"
	case Exception:
		return "runtime error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is a classified application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err, or Exception if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Exception
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
