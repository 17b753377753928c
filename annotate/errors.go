package annotate

import (
	"errors"
	"fmt"
)

// FileNotFoundError indicates an annotation's target file is absent. The
// single annotation is skipped and the run continues.
type FileNotFoundError struct {
	File string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("annotation target %s does not exist", e.File)
}

// NewFileNotFoundError creates a new FileNotFoundError.
func NewFileNotFoundError(file string) *FileNotFoundError {
	return &FileNotFoundError{File: file}
}

// IsFileNotFoundError checks if the error is or wraps a FileNotFoundError.
func IsFileNotFoundError(err error) bool {
	var notFoundErr *FileNotFoundError
	return err != nil && errors.As(err, &notFoundErr)
}

// NoProblemFoundError indicates a navigation request found no matching
// boundary. It is informational, not a failure.
type NoProblemFoundError struct {
	Direction string
}

func (e *NoProblemFoundError) Error() string {
	return fmt.Sprintf("no %s problem", e.Direction)
}

// NewNoProblemFoundError creates a new NoProblemFoundError.
func NewNoProblemFoundError(direction string) *NoProblemFoundError {
	return &NoProblemFoundError{Direction: direction}
}

// IsNoProblemFoundError checks if the error is or wraps a NoProblemFoundError.
func IsNoProblemFoundError(err error) bool {
	var noProblemErr *NoProblemFoundError
	return err != nil && errors.As(err, &noProblemErr)
}
