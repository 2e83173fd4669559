package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies expected business-rule failures. Every engine
// operation returns one of these kinds instead of panicking or throwing;
// infrastructure failures pass through wrapped.
type ErrorKind int

const (
	// KindNotFound: a referenced exam, assignment, attempt, question or
	// response does not exist.
	KindNotFound ErrorKind = iota
	// KindValidation: malformed input — empty question set, foreign question
	// ids in a custom subset, response data not matching the question type.
	KindValidation
	// KindInvalidState: the operation is not legal in the current lifecycle
	// state — exam unpublished, attempt not in progress, time outside the
	// attempt window.
	KindInvalidState
	// KindConflict: duplicate assignment creation for an already-assigned
	// student.
	KindConflict
)

// Error is a typed domain error carrying its kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NotFoundError builds a KindNotFound error.
func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ValidationError builds a KindValidation error.
func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError builds a KindInvalidState error.
func InvalidStateError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// ConflictError builds a KindConflict error.
func ConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the domain error kind from err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
