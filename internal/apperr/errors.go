// Package apperr defines the error taxonomy shared by the build pipeline.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingTemplate = errors.New("missing template")
)

// IOError is a file read, write or permission failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConversionError is a failed external converter run.
type ConversionError struct {
	Source string
	Format string
	Output string // combined converter output, may be empty
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s (%s): %v", e.Source, e.Format, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// TemplateError is a missing template or a failed template execution.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// IO wraps err as an *IOError. A nil err yields nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
