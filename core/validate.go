package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// VALIDATION RESULT - Structured, non-fatal input validation
// =============================================================================

// FieldError describes a single invalid field. The UI layer decides how to
// surface it (toast, inline message); the engine never turns one into a panic.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects field errors from validating one input record.
// A nil or empty result means the input is valid.
type ValidationResult struct {
	Errors []FieldError `json:"errors,omitempty"`
}

func (v *ValidationResult) Add(field, code, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Code: code, Message: message})
}

func (v *ValidationResult) Valid() bool {
	return v == nil || len(v.Errors) == 0
}

// Err converts the result into an error wrapping ErrInvalidInput, or nil
// when the input is valid. Used where a validation failure must abort before
// any state mutation.
func (v *ValidationResult) Err() error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Result: *v}
}

// ValidationError carries a ValidationResult across an error return.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Result.Errors))
	for i, fe := range e.Result.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
