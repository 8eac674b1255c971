// Package errors carries the coded errors every conversion stage returns.
// The code decides the HTTP status at the boundary; Message is what the
// client sees; Op, Err, Fields and Stack stay in the logs.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Code represents an error code for categorization.
type Code string

// Error codes for the service.
const (
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeRateLimited      Code = "RATE_LIMITED"

	// Conversion pipeline failures. All of them surface as 500.
	CodeStorage           Code = "STORAGE_ERROR"
	CodeConversionTimeout Code = "CONVERSION_TIMEOUT"
	CodeConversionFailed  Code = "CONVERSION_ERROR"
	CodeOutputMissing     Code = "OUTPUT_MISSING"
	CodeEmptyDocument     Code = "EMPTY_DOCUMENT"
)

// Error is a custom error type with additional context.
type Error struct {
	// Code is the error code for categorization.
	Code Code
	// Message is the human-readable error message.
	Message string
	// Op is the operation that failed (e.g., "job.create").
	Op string
	// Err is the underlying error.
	Err error
	// Fields contains additional context fields.
	Fields map[string]any
	// Stack contains the stack trace at error creation.
	Stack []Frame
}

// Frame represents a single stack frame.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}

	if e.Code != "" {
		b.WriteString("[")
		b.WriteString(string(e.Code))
		b.WriteString("] ")
	}

	b.WriteString(e.Message)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithField adds a field to the error.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return 400
	case CodeNotFound:
		return 404
	case CodeMethodNotAllowed:
		return 405
	case CodeRateLimited:
		return 429
	case CodeUnavailable:
		return 503
	default:
		// Conversion failures, timeouts included, are 500.
		return 500
	}
}

// StackTrace returns the stack trace as a formatted string.
func (e *Error) StackTrace() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.File, f.Line, f.Function)
	}
	return b.String()
}

// New creates a new error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, op string, message string) *Error {
	if err == nil {
		return nil
	}

	// If it's already our error type, preserve the code
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Code:    e.Code,
			Message: message,
			Op:      op,
			Err:     err,
			Fields:  e.Fields,
			Stack:   captureStack(2),
		}
	}

	return &Error{
		Code:    CodeInternal,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   captureStack(2),
	}
}

// WrapWithCode wraps an error with a specific code.
func WrapWithCode(err error, code Code, op string, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   captureStack(2),
	}
}

// NotFound creates a not found error.
func NotFound(resource string, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id)).
		WithField("resource", resource).
		WithField("id", id)
}

// ValidationField creates a validation error for a specific field.
func ValidationField(field string, message string) *Error {
	return New(CodeValidation, message).WithField("field", field)
}

// Storage wraps a filesystem or object store failure.
func Storage(err error, op string, message string) *Error {
	if err == nil {
		err = fmt.Errorf("%s", message)
	}
	return &Error{
		Code:    CodeStorage,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   captureStack(2),
	}
}

// ConversionTimeout reports a converter that ran past its time bound.
func ConversionTimeout(program string, limit time.Duration) *Error {
	return New(CodeConversionTimeout, "Conversion timeout").
		WithField("program", program).
		WithField("timeout", limit.String())
}

// ConversionFailed reports a converter that exited non-zero. The captured
// stderr becomes part of the client-facing message.
func ConversionFailed(program string, exitCode int, stderr string) *Error {
	return New(CodeConversionFailed, "Conversion failed: "+stderr).
		WithField("program", program).
		WithField("exit_code", exitCode).
		WithField("stderr", stderr)
}

// OutputMissing reports a converter that succeeded without producing its artifact.
func OutputMissing(path string) *Error {
	return New(CodeOutputMissing, "Conversion failed: Output file not found").
		WithField("expected", path)
}

// EmptyDocument reports a rasterization that yielded zero pages.
func EmptyDocument() *Error {
	return New(CodeEmptyDocument, "No pages found in PDF")
}

// Unavailable reports a backing service (retention storage, ledger) that
// could not be reached. err is kept for the log only.
func Unavailable(service string, err error) *Error {
	return &Error{
		Code:    CodeUnavailable,
		Message: fmt.Sprintf("%s is unavailable", service),
		Err:     err,
		Fields:  map[string]any{"service": service},
		Stack:   captureStack(2),
	}
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus extracts the HTTP status from an error.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return 500
}

// GetFields extracts fields from an error.
func GetFields(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) && e.Fields != nil {
		return e.Fields
	}
	return nil
}

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// PublicMessage returns the message safe to show a client: the Message of
// the outermost *Error, or a generic text for foreign errors.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return IsCode(err, CodeValidation)
}

// IsConversion reports whether the error came from the conversion stages
// (converter run, output check, or rasterization).
func IsConversion(err error) bool {
	switch GetCode(err) {
	case CodeConversionTimeout, CodeConversionFailed, CodeOutputMissing, CodeEmptyDocument:
		return true
	}
	return false
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])

	frames := make([]Frame, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := callersFrames.Next()

		// Skip runtime frames
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}

		frames = append(frames, Frame{
			File:     frame.File,
			Line:     frame.Line,
			Function: frame.Function,
		})

		if !more || len(frames) >= 10 {
			break
		}
	}

	return frames
}

// As is a convenience wrapper for errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is a convenience wrapper for errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
