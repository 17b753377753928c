package probe

import (
	"errors"
	"fmt"
)

// NotConnectedError indicates the remote evaluation channel is unavailable.
// A run request is refused without mutating any state.
type NotConnectedError struct {
	Addr string
}

func (e *NotConnectedError) Error() string {
	if e.Addr == "" {
		return "not connected to a repl"
	}
	return fmt.Sprintf("not connected to a repl at %s", e.Addr)
}

// NewNotConnectedError creates a new NotConnectedError.
func NewNotConnectedError(addr string) *NotConnectedError {
	return &NotConnectedError{Addr: addr}
}

// IsNotConnectedError checks if the error is or wraps a NotConnectedError.
func IsNotConnectedError(err error) bool {
	var notConnectedErr *NotConnectedError
	return err != nil && errors.As(err, &notConnectedErr)
}

// RuntimeError represents an operational error that should lead to exit code 2.
// Examples include a lost connection or an unreadable payload.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError represents a failure from test assertions (exit code 1)
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
