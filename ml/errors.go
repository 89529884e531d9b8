package ml

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks input rejected before encoding.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSchemaMismatch marks a feature vector whose columns differ from what
	// the model was trained against.
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrUnknownScheme  = errors.New("unknown encoding scheme")
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// SchemaMismatchError is raised before the model is invoked, never after.
type SchemaMismatchError struct {
	Expected []string
	Got      []string
	Reason   string
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Expected) == 0 && len(e.Got) == 0 {
		return "schema mismatch: " + e.Reason
	}
	return fmt.Sprintf("schema mismatch: %s (expected %v, got %v)", e.Reason, e.Expected, e.Got)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}
