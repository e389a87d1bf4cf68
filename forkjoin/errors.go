package forkjoin

import (
	"errors"
	"fmt"
	"runtime/debug"
)

const (
	invalidConfigErr = "invalid configuration"
	poolShutDownErr  = "pool shut down"
	taskExecErr      = "task execution failure"
)

// Error represents a typed error that this package can return.
// Errors from a cancelled Context are returned as is.
type Error struct {
	// Type is the type of error.
	Type string
	// Msg is the message of the error.
	Msg string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns the Error type, message and cause.
func (e Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Msg, e.Cause)
}

// Unwrap returns the Cause.
func (e Error) Unwrap() error {
	return e.Cause
}

// IsErrInvalidConfiguration returns true if the error was caused by a bad argument to
// New() or Reduce(), such as a pool size < 1.
func IsErrInvalidConfiguration(err error) bool {
	return isType(err, invalidConfigErr)
}

// IsErrPoolShutDown returns true if Reduce() was called after the Pool was shut down.
// A new Pool must be created to continue.
func IsErrPoolShutDown(err error) bool {
	return isType(err, poolShutDownErr)
}

// IsErrTaskExecution returns true if a Transform returned an error or a Transform,
// Combiner or Observer panicked. errors.Unwrap() gives the original error.
// The Pool can still be used.
func IsErrTaskExecution(err error) bool {
	return isType(err, taskExecErr)
}

func isType(err error, t string) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}

func invalidConfig(format string, a ...any) Error {
	return Error{Type: invalidConfigErr, Msg: fmt.Sprintf(format, a...)}
}

// wrapPanic turns a recovered panic value into an error with the stack of the panic.
func wrapPanic(p any) error {
	if err, ok := p.(error); ok {
		return fmt.Errorf("panic: %w\n%s", err, debug.Stack())
	}
	return fmt.Errorf("panic: %v\n%s", p, debug.Stack())
}
