package config

import (
	"errors"
	"fmt"
)

// ValidationError reports a configuration value that would make a run
// misbehave. It is always fatal before any action loop starts.
type ValidationError struct {
	Field  string
	Reason string
}

func newValidationError(field string, reason string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: reason,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config value %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a configuration validation error.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
