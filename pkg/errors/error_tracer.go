package errors

import "github.com/pkg/errors"

// StackTracer is implemented by errors that carry a stack trace.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer is a custom error type that includes a message and an underlying error.
type ErrorTracer struct {
	Message string
	Err     error
}

// NewTracer creates a new ErrorTracer with the provided message.
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// TracerFromError creates a new ErrorTracer from an existing error, preserving the stack trace.
func TracerFromError(err error) *ErrorTracer {
	return NewTracer(err.Error()).Wrap(err)
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// Wrap wraps an existing error into the ErrorTracer, capturing a stack
// trace if the error does not already carry one.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	if _, ok := err.(StackTracer); ok {
		e.Err = err
		return e
	}

	e.Err = errors.WithStack(err)
	return e
}

// StackTrace returns the stack trace of the underlying error if it implements StackTracer.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if traced, ok := e.Unwrap().(StackTracer); ok {
		return traced.StackTrace()
	}
	return nil
}
