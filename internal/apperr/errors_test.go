package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
	}{
		{"validation", NewValidationError("pdf_file", "missing"), KindValidation, http.StatusBadRequest},
		{"validation 413", &ValidationError{Message: "too big", Status: http.StatusRequestEntityTooLarge}, KindValidation, http.StatusRequestEntityTooLarge},
		{"extraction", &ExtractionError{Reason: "bad header"}, KindExtraction, http.StatusBadRequest},
		{"empty text", &EmptyTextError{Pages: 2}, KindEmptyText, http.StatusUnprocessableEntity},
		{"too large", &PayloadTooLargeError{Length: 30001, Limit: 30000}, KindPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"synthesis", &SynthesisError{Backend: "gtts", Message: "boom"}, KindSynthesis, http.StatusBadGateway},
		{"synthesis timeout", NewSynthesisError("google", "call failed", context.DeadlineExceeded), KindSynthesis, http.StatusGatewayTimeout},
		{"circuit open", &SynthesisError{Message: "open", Unavailable: true}, KindSynthesis, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.err)
			if c.Kind() != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, c.Kind())
			}
			if c.StatusCode() != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, c.StatusCode())
			}
			if c.PublicMessage() == "" {
				t.Error("Expected a public message")
			}
		})
	}
}

func TestClassify_Wrapped(t *testing.T) {
	err := fmt.Errorf("convert upload: %w", &EmptyTextError{Pages: 3})
	if !IsKind(err, KindEmptyText) {
		t.Errorf("Expected wrapped error to classify as %s, got %s", KindEmptyText, Classify(err).Kind())
	}
	if IsKind(nil, KindEmptyText) {
		t.Error("Expected nil not to match any kind")
	}
}

func TestPayloadTooLarge_ReportsLengthAndLimit(t *testing.T) {
	err := &PayloadTooLargeError{Length: 31234, Limit: 30000}
	for _, s := range []string{err.Error(), err.PublicMessage()} {
		if !strings.Contains(s, "31234") || !strings.Contains(s, "30000") {
			t.Errorf("Expected %q to mention both length and limit", s)
		}
	}
}

func TestInternalError_HidesDetail(t *testing.T) {
	c := Classify(errors.New("open /secrets/key.json: permission denied"))
	if strings.Contains(c.PublicMessage(), "secrets") {
		t.Errorf("Expected internal detail to stay out of the public message, got %q", c.PublicMessage())
	}
}

func TestSynthesisError_Unwrap(t *testing.T) {
	cause := errors.New("upstream 500")
	err := NewSynthesisError("cartesia", "request failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected SynthesisError to unwrap to its cause")
	}
	if err.Timeout {
		t.Error("Expected a plain failure not to be flagged as timeout")
	}
	if !strings.Contains(err.Error(), "cartesia") {
		t.Errorf("Expected backend name in %q", err.Error())
	}
}
