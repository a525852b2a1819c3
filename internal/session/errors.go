package session

import (
	"errors"
	"fmt"
)

// Code categorizes engine failures so callers can map them to a response
// without string matching.
type Code string

const (
	// CodeValidation marks bad input. Reported to the caller, never retried.
	CodeValidation Code = "validation"

	// CodeInvalidState marks an operation issued in the wrong lifecycle
	// phase, such as adding an exercise to a completed session.
	CodeInvalidState Code = "invalid_state"

	// CodeConflict marks an attempt to start a session while one is active.
	CodeConflict Code = "conflict"

	// CodeNotFound marks a missing exercise, set, or active session.
	CodeNotFound Code = "not_found"

	// CodePersistence marks a store failure that the caller must see.
	// Autosave failures never carry this code outward; they are logged and
	// swallowed so a flaky disk cannot interrupt a workout.
	CodePersistence Code = "persistence"
)

// Error is a typed engine failure.
type Error struct {
	Code    Code
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an engine Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code Code) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}

// CodeOf returns the code of an engine Error, or "" for other errors.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func errValidation(op, msg string) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: msg}
}

func errInvalidState(op, msg string) *Error {
	return &Error{Code: CodeInvalidState, Op: op, Message: msg}
}

func errConflict(op, msg string) *Error {
	return &Error{Code: CodeConflict, Op: op, Message: msg}
}

func errNotFound(op, msg string) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: msg}
}

func errPersistence(op, msg string, err error) *Error {
	return &Error{Code: CodePersistence, Op: op, Message: msg, Err: err}
}
