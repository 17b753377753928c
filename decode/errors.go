package decode

import (
	"errors"
	"fmt"
)

// MalformedResultError indicates the remote payload did not match the
// expected positional shape. The run is aborted when it occurs.
type MalformedResultError struct {
	Reason string
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("malformed result payload: %s", e.Reason)
}

// NewMalformedResultError creates a new MalformedResultError.
func NewMalformedResultError(format string, args ...any) *MalformedResultError {
	return &MalformedResultError{Reason: fmt.Sprintf(format, args...)}
}

// IsMalformedResultError checks if the error is or wraps a MalformedResultError.
func IsMalformedResultError(err error) bool {
	var malformedErr *MalformedResultError
	return err != nil && errors.As(err, &malformedErr)
}

// MissingMetadataError indicates a test record carries no source file, so
// its annotations cannot be placed. The record is skipped; the run
// otherwise completes.
type MissingMetadataError struct {
	TestID string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("test %s has no source file metadata", e.TestID)
}

// NewMissingMetadataError creates a new MissingMetadataError.
func NewMissingMetadataError(testID string) *MissingMetadataError {
	return &MissingMetadataError{TestID: testID}
}

// IsMissingMetadataError checks if the error is or wraps a MissingMetadataError.
func IsMissingMetadataError(err error) bool {
	var missingErr *MissingMetadataError
	return err != nil && errors.As(err, &missingErr)
}
