package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/observability"
	"github.com/lexiqai/pdftoaudio/internal/pipeline"
	"github.com/lexiqai/pdftoaudio/internal/tts"
)

//go:embed templates/index.html
var templateFS embed.FS

const (
	fieldFile  = "pdf_file"
	fieldLang  = "language"
	fieldVoice = "voice"
	fieldRate  = "speaking_rate"
)

// Converter runs one upload to an artifact. *pipeline.Pipeline implements it.
type Converter interface {
	Convert(ctx context.Context, doc pipeline.UploadedDocument, opts tts.Options) (*pipeline.AudioArtifact, error)
}

// FormDefaults pre-fills the upload form. DefaultVoice is only shown as a
// hint; the voice field is submitted empty so other languages pick their own
// default.
type FormDefaults struct {
	Backend      string
	Languages    []string
	Language     string
	DefaultVoice string
	Rate         float64
	RateMin      float64
	RateMax      float64
	MaxChars     int
}

type formPage struct {
	FormDefaults
	Error string
}

// Handler serves the form and the conversion endpoint.
type Handler struct {
	converter      Converter
	emitter        Emitter
	maxUploadBytes int64
	defaults       FormDefaults
	tmpl           *template.Template
}

// NewHandler creates a Handler. maxUploadBytes bounds the whole request body.
func NewHandler(converter Converter, emitter Emitter, maxUploadBytes int64, defaults FormDefaults) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if defaults.Rate == 0 {
		defaults.Rate = 1.0
	}
	if defaults.RateMax == 0 {
		defaults.RateMin, defaults.RateMax = defaults.Rate, defaults.Rate
	}
	return &Handler{
		converter:      converter,
		emitter:        emitter,
		maxUploadBytes: maxUploadBytes,
		defaults:       defaults,
		tmpl:           tmpl,
	}, nil
}

// ShowForm renders the upload form.
func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "")
}

// Convert accepts a multipart upload and responds with the MP3 download.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	doc, opts, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	artifact, err := h.converter.Convert(r.Context(), doc, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.emitter.Emit(w, r, artifact); err != nil {
		h.writeError(w, r, fmt.Errorf("emit artifact: %w", err))
	}
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.UploadedDocument, tts.Options, error) {
	var doc pipeline.UploadedDocument
	var opts tts.Options

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return doc, opts, h.multipartError(err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(fieldFile)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return doc, opts, apperr.NewValidationError(fieldFile, "Please upload a PDF file.")
		}
		return doc, opts, h.multipartError(err)
	}
	defer file.Close()

	filename := strings.TrimSpace(filepath.Base(header.Filename))
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}
	if err := pipeline.ValidateUpload(filename); err != nil {
		return doc, opts, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return doc, opts, fmt.Errorf("read upload: %w", err)
	}

	opts, err = parseOptions(r)
	if err != nil {
		return doc, opts, err
	}

	return pipeline.UploadedDocument{Filename: filename, Data: data}, opts, nil
}

func (h *Handler) multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return &apperr.ValidationError{
			Field:   fieldFile,
			Message: fmt.Sprintf("The upload exceeds the %s limit.", formatBytes(h.maxUploadBytes)),
			Status:  http.StatusRequestEntityTooLarge,
		}
	}
	return apperr.NewValidationError(fieldFile, "The request must be a multipart form upload.")
}

// parseOptions reads the optional synthesis fields. Missing values fall
// back to the service defaults.
func parseOptions(r *http.Request) (tts.Options, error) {
	opts := tts.Options{
		Language:  strings.TrimSpace(r.FormValue(fieldLang)),
		VoiceName: strings.TrimSpace(r.FormValue(fieldVoice)),
	}

	raw := strings.TrimSpace(r.FormValue(fieldRate))
	if raw == "" {
		return opts, nil
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return opts, apperr.NewValidationError(fieldRate, fmt.Sprintf("Speaking rate %q must be a positive number.", raw))
	}
	opts.SpeakingRate = rate
	return opts, nil
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.Execute(w, formPage{FormDefaults: h.defaults, Error: message}); err != nil {
		observability.FromContext(r.Context()).Error().Err(err).Msg("Failed to render form")
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%g MB", math.Round(float64(n)/(1<<20)*10)/10)
	case n >= 1<<10:
		return fmt.Sprintf("%g KB", math.Round(float64(n)/(1<<10)*10)/10)
	}
	return fmt.Sprintf("%d bytes", n)
}
