package dualdb

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure independent of which backend raised it.
type ErrorKind int

const (
	// ErrUnknown is the zero kind; it is never produced by this package.
	ErrUnknown ErrorKind = iota

	// ErrConnection covers unreachable servers, authentication failures,
	// invalid file paths, and unrecognized connect targets.
	ErrConnection

	// ErrSyntax means the backend parser rejected the statement.
	ErrSyntax

	// ErrConstraint covers uniqueness, foreign-key, and check violations.
	ErrConstraint

	// ErrParam means the parameter list does not match the statement's
	// placeholders in arity or type.
	ErrParam

	// ErrType means a value conversion failed, including unsupported widths.
	ErrType

	// ErrShape means a scalar helper received the wrong row or column count.
	ErrShape

	// ErrClosed means the operation was attempted on a closed connection.
	ErrClosed

	// ErrInternal is an uncategorized native failure. The backend diagnostic
	// is preserved on the wrapped error.
	ErrInternal
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrConnection:
		return "connection"
	case ErrSyntax:
		return "syntax"
	case ErrConstraint:
		return "constraint"
	case ErrParam:
		return "param"
	case ErrType:
		return "type"
	case ErrShape:
		return "shape"
	case ErrClosed:
		return "closed"
	case ErrInternal:
		return "internal"
	}
	return "unknown"
}

// Error is the unified failure type returned by every operation. It carries
// a kind for control decisions and, where the failure originated in a native
// driver, the original diagnostic as the wrapped cause. The cause is kept
// for logging only; core logic never inspects it.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf extracts the ErrorKind from err, unwrapping as needed. It returns
// ErrUnknown for nil and for errors that did not originate in this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrUnknown
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}
