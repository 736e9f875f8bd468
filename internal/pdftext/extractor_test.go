package pdftext

import (
	"context"
	"errors"
	"testing"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/pdftext/pdftest"
)

func TestExtract_SinglePage(t *testing.T) {
	result, err := NewExtractor().Extract(context.Background(), pdftest.Build("Hello world."))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Text != "Hello world.\n" {
		t.Errorf("Expected %q, got %q", "Hello world.\n", result.Text)
	}
	if result.PageCount != 1 || result.PagesWithText != 1 {
		t.Errorf("Expected 1 page with text, got %d/%d", result.PagesWithText, result.PageCount)
	}
	if result.WordCount != 2 {
		t.Errorf("Expected 2 words, got %d", result.WordCount)
	}
}

func TestExtract_MultiPageKeepsOrderAndSkipsBlankPages(t *testing.T) {
	data := pdftest.Build("Chapter one.", "", "Chapter two.", "")

	result, err := NewExtractor().Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := "Chapter one.\nChapter two.\n"
	if result.Text != want {
		t.Errorf("Expected %q, got %q", want, result.Text)
	}
	if result.PageCount != 4 {
		t.Errorf("Expected 4 pages, got %d", result.PageCount)
	}
	if result.PagesWithText != 2 {
		t.Errorf("Expected 2 pages with text, got %d", result.PagesWithText)
	}
}

func TestExtract_EscapedParentheses(t *testing.T) {
	result, err := NewExtractor().Extract(context.Background(), pdftest.Build("Total (net): 5"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Text != "Total (net): 5\n" {
		t.Errorf("Unexpected text %q", result.Text)
	}
}

func TestExtract_AllPagesBlank(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), pdftest.Build("", "", ""))

	var emptyErr *apperr.EmptyTextError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("Expected EmptyTextError, got %v", err)
	}
	if emptyErr.Pages != 3 {
		t.Errorf("Expected 3 pages in error, got %d", emptyErr.Pages)
	}
}

func TestExtract_Unreadable(t *testing.T) {
	valid := pdftest.Build("Hello world.")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("PK\x03\x04 this is a zip archive, not a document")},
		{"truncated", valid[:len(valid)/2]},
		{"header only", []byte("%PDF-1.4\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor().Extract(context.Background(), tt.data)
			var extErr *apperr.ExtractionError
			if !errors.As(err, &extErr) {
				t.Fatalf("Expected ExtractionError, got %v", err)
			}
			if extErr.StatusCode() != 400 {
				t.Errorf("Expected status 400, got %d", extErr.StatusCode())
			}
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor().Extract(ctx, pdftest.Build("Hello world."))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestIsPDF(t *testing.T) {
	if !IsPDF([]byte("%PDF-1.7\n")) {
		t.Error("Expected PDF magic to be recognised")
	}
	if IsPDF([]byte("%PS-Adobe")) {
		t.Error("Expected PostScript to be rejected")
	}
}
