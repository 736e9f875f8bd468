// Package apperr holds the error taxonomy shared by the pipeline stages and
// the HTTP layer. Every stage returns one of these types (possibly wrapped);
// the HTTP layer converts them into a single response shape via Classify.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a category of failure.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindExtraction      Kind = "extraction"
	KindEmptyText       Kind = "empty_text"
	KindPayloadTooLarge Kind = "payload_too_large"
	KindSynthesis       Kind = "synthesis"
	KindInternal        Kind = "internal"
)

// Classified is implemented by every error in this package.
type Classified interface {
	error
	Kind() Kind
	StatusCode() int
	// PublicMessage is safe to show to the caller.
	PublicMessage() string
}

// ValidationError reports a bad or missing upload or option.
type ValidationError struct {
	Field   string
	Message string
	Status  int // 0 means 400
}

// NewValidationError creates a 400 validation error for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "validation: " + e.Field + ": " + e.Message
	}
	return "validation: " + e.Message
}

func (e *ValidationError) Kind() Kind { return KindValidation }

func (e *ValidationError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusBadRequest
}

func (e *ValidationError) PublicMessage() string { return e.Message }

// ExtractionError reports a byte stream that is not a readable PDF.
type ExtractionError struct {
	Reason string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction: %s: %v", e.Reason, e.Cause)
	}
	return "extraction: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

func (e *ExtractionError) Kind() Kind { return KindExtraction }

func (e *ExtractionError) StatusCode() int { return http.StatusBadRequest }

func (e *ExtractionError) PublicMessage() string {
	return "The uploaded file could not be read as a PDF."
}

// EmptyTextError reports a PDF without any extractable text, typically a
// scanned or image-only document. It is an expected outcome, not a crash.
type EmptyTextError struct {
	Pages int
}

func (e *EmptyTextError) Error() string {
	return fmt.Sprintf("empty text: no readable text in %d page(s)", e.Pages)
}

func (e *EmptyTextError) Kind() Kind { return KindEmptyText }

func (e *EmptyTextError) StatusCode() int { return http.StatusUnprocessableEntity }

func (e *EmptyTextError) PublicMessage() string {
	return "No readable text was found in the PDF. Scanned or image-only documents are not supported."
}

// PayloadTooLargeError reports text longer than the synthesis limit.
type PayloadTooLargeError struct {
	Length int
	Limit  int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload too large: text has %d characters, limit is %d", e.Length, e.Limit)
}

func (e *PayloadTooLargeError) Kind() Kind { return KindPayloadTooLarge }

func (e *PayloadTooLargeError) StatusCode() int { return http.StatusRequestEntityTooLarge }

func (e *PayloadTooLargeError) PublicMessage() string {
	return fmt.Sprintf("The document contains %d characters of text; the limit is %d.", e.Length, e.Limit)
}

// SynthesisError reports a backend failure or missing output.
type SynthesisError struct {
	Backend     string
	Message     string
	Cause       error
	Timeout     bool
	Unavailable bool // circuit open
}

func (e *SynthesisError) Error() string {
	msg := "synthesis"
	if e.Backend != "" {
		msg += " (" + e.Backend + ")"
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

func (e *SynthesisError) Kind() Kind { return KindSynthesis }

func (e *SynthesisError) StatusCode() int {
	switch {
	case e.Timeout:
		return http.StatusGatewayTimeout
	case e.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (e *SynthesisError) PublicMessage() string {
	if e.Timeout {
		return "Speech synthesis timed out. Please try again with a shorter document."
	}
	return "Speech synthesis failed. Please try again later."
}

// NewSynthesisError wraps cause, marking context deadlines as timeouts.
func NewSynthesisError(backend, message string, cause error) *SynthesisError {
	return &SynthesisError{
		Backend: backend,
		Message: message,
		Cause:   cause,
		Timeout: errors.Is(cause, context.DeadlineExceeded),
	}
}

// internalError is what Classify returns for errors outside the taxonomy.
type internalError struct {
	cause error
}

func (e *internalError) Error() string { return "internal: " + e.cause.Error() }

func (e *internalError) Unwrap() error { return e.cause }

func (e *internalError) Kind() Kind { return KindInternal }

func (e *internalError) StatusCode() int { return http.StatusInternalServerError }

func (e *internalError) PublicMessage() string { return "Internal Server Error" }

// Classify finds the taxonomy error in err's chain. Unknown errors are
// reported as internal with a generic public message.
func Classify(err error) Classified {
	if err == nil {
		return nil
	}
	var c Classified
	if errors.As(err, &c) {
		return c
	}
	return &internalError{cause: err}
}

// IsKind reports whether err classifies as k.
func IsKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind() == k
}
