package pngchunk

import (
	"errors"
	"fmt"
)

// Error types for pngchunk operations
var (
	// ErrBadSignature is returned when the first 8 bytes are not the PNG signature
	ErrBadSignature = &Error{Code: "BAD_SIGNATURE", Message: "bad png signature"}

	// ErrTooShort is returned when a buffer is shorter than a required minimum
	ErrTooShort = &Error{Code: "TOO_SHORT", Message: "buffer too short"}

	// ErrInvalidChunkType is returned for a non-letter type byte or a set reserved bit
	ErrInvalidChunkType = &Error{Code: "INVALID_CHUNK_TYPE", Message: "invalid chunk type"}

	// ErrInvalidUTF8 is returned when a payload is decoded as text but is not UTF-8
	ErrInvalidUTF8 = &Error{Code: "INVALID_UTF8", Message: "chunk data is not valid utf-8"}

	// ErrCRCMismatch is returned when the stored CRC disagrees with the recomputed one
	ErrCRCMismatch = &Error{Code: "CRC_MISMATCH", Message: "chunk crc mismatch"}

	// ErrChunkNotFound is returned when no chunk matches a requested type code
	ErrChunkNotFound = &Error{Code: "CHUNK_NOT_FOUND", Message: "chunk not found"}

	// ErrIOFailed is returned by storage when a read or write fails after all retries
	ErrIOFailed = &Error{Code: "IO_FAILED", Message: "i/o failed after retries"}
)

// Error represents a structured error in pngchunk operations
type Error struct {
	Code    string                 // Error code for programmatic handling
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code, so errors.Is matches
// a sentinel after details or causes have been attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause to the error
func (e *Error) WithCause(cause error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage overrides the error message
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// IsPngError checks if an error is, or wraps, a pngchunk Error
func IsPngError(err error) bool {
	var pngErr *Error
	return errors.As(err, &pngErr)
}

// GetErrorCode extracts the error code of the outermost pngchunk Error
func GetErrorCode(err error) string {
	var pngErr *Error
	if errors.As(err, &pngErr) {
		return pngErr.Code
	}
	return ""
}

// Detail returns a detail value from the outermost pngchunk Error in err's chain.
func Detail(err error, key string) (interface{}, bool) {
	var pngErr *Error
	if !errors.As(err, &pngErr) {
		return nil, false
	}
	v, ok := pngErr.Details[key]
	return v, ok
}
