// Package errs defines the error kinds shared by the builders, handlers
// and response wrappers.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is wrapped by every builder argument failure.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrParse is wrapped when a media type or content disposition
	// value cannot be parsed.
	ErrParse = errors.New("parse failure")
	// ErrConfiguration is wrapped when a handler cannot be constructed,
	// e.g. no token provider is registered under a name.
	ErrConfiguration = errors.New("configuration failure")
)

// ArgumentError reports a missing or empty required argument.
type ArgumentError struct {
	Param  string
	Reason string
}

// InvalidArgument constructs an *ArgumentError for param.
func InvalidArgument(param, reason string) error {
	return &ArgumentError{Param: param, Reason: reason}
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidArgument, e.Param, e.Reason)
}

// Unwrap returns ErrInvalidArgument.
func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// ParseError reports a header value that could not be parsed.
type ParseError struct {
	Field string
	Value string
	Err   error
}

// Parse constructs a *ParseError for the given field.
func Parse(field, value string, err error) error {
	return &ParseError{Field: field, Value: value, Err: err}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %s[%s]: %v", ErrParse, e.Field, e.Value, e.Err)
}

// Unwrap exposes both ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Configuration constructs an error wrapping ErrConfiguration.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// IsArgumentError checks if an error of type *ArgumentError exists.
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}

// GetArgumentError returns the *ArgumentError in err's chain, if any.
func GetArgumentError(err error) *ArgumentError {
	var ae *ArgumentError
	if !errors.As(err, &ae) {
		return nil
	}
	return ae
}
