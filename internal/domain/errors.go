package domain

import (
	"errors"
	"fmt"
)

// ErrSchema matches any SchemaError via errors.Is.
var ErrSchema = errors.New("schema mismatch")

// SchemaError reports a required column or attribute missing from a dataset.
type SchemaError struct {
	Dataset string
	Key     string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: required attribute %q not found", e.Dataset, e.Key)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// LoadError wraps any failure to fetch or parse a dataset.
type LoadError struct {
	Dataset string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Dataset, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
