package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned by the write paths whenever the provided data is invalid.
// The HTTP layer maps it to a 400 with the field errors as body.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that causes the server to signal a graceful shutdown.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
