// Package pdftext extracts the plain text layer of an uploaded PDF.
//
// Parsing runs over the in-memory upload with github.com/ledongthuc/pdf; no
// bytes are written to disk. Scanned (image-only) documents have no text layer
// and are reported as apperr.EmptyTextError.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/observability"
)

var pdfMagic = []byte("%PDF-")

// Result holds the output of one extraction.
type Result struct {
	Text          string // Page texts, each trimmed and followed by "\n"
	PageCount     int
	PagesWithText int
	WordCount     int
}

// Extractor turns PDF bytes into text. The zero value is ready to use and
// safe for concurrent use.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses data and concatenates the text of every page in order.
// It returns *apperr.ExtractionError for unreadable input and
// *apperr.EmptyTextError when no page carries text.
func (e *Extractor) Extract(ctx context.Context, data []byte) (result *Result, err error) {
	start := time.Now()
	logger := observability.FromContext(ctx)

	if len(data) == 0 {
		return nil, &apperr.ExtractionError{Reason: "file is empty"}
	}
	if !IsPDF(data) {
		return nil, &apperr.ExtractionError{Reason: "missing %PDF- header"}
	}

	// The parser panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &apperr.ExtractionError{Reason: "malformed document", Cause: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &apperr.ExtractionError{Reason: "cannot open document", Cause: err}
	}

	pageCount := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	var text strings.Builder
	pagesWithText := 0

	for i := 1; i <= pageCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		pageText, pageErr := page.GetPlainText(fonts)
		if pageErr != nil {
			logger.Debug().Err(pageErr).Int("page", i).Msg("Skipping undecodable page")
			continue
		}

		trimmed := strings.TrimSpace(pageText)
		if trimmed == "" {
			continue
		}
		text.WriteString(trimmed)
		text.WriteString("\n")
		pagesWithText++
	}

	observability.RecordExtraction(time.Since(start), pageCount)

	if pagesWithText == 0 {
		return nil, &apperr.EmptyTextError{Pages: pageCount}
	}

	out := text.String()
	logger.Debug().
		Int("pages", pageCount).
		Int("pages_with_text", pagesWithText).
		Int("chars", len([]rune(out))).
		Dur("elapsed", time.Since(start)).
		Msg("Extracted PDF text")

	return &Result{
		Text:          out,
		PageCount:     pageCount,
		PagesWithText: pagesWithText,
		WordCount:     len(strings.Fields(out)),
	}, nil
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}
