// Package pipeline runs one upload through extraction and synthesis and
// produces the audio artifact returned to the caller.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/observability"
	"github.com/lexiqai/pdftoaudio/internal/pdftext"
	"github.com/lexiqai/pdftoaudio/internal/tts"
)

// ContentTypeMP3 is the media type of every artifact.
const ContentTypeMP3 = "audio/mpeg"

// UploadedDocument is the received file, held in memory for one request.
type UploadedDocument struct {
	Filename string
	Data     []byte
}

// AudioArtifact is the synthesized result for one document.
type AudioArtifact struct {
	ID          string
	Filename    string
	ContentType string
	Data        []byte
	Duration    time.Duration
	CreatedAt   time.Time
}

// Extractor turns PDF bytes into text. *pdftext.Extractor implements it.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*pdftext.Result, error)
}

// Pipeline is safe for concurrent use as long as its collaborators are.
type Pipeline struct {
	extractor   Extractor
	synthesizer tts.Synthesizer
	now         func() time.Time
}

// New creates a Pipeline.
func New(extractor Extractor, synthesizer tts.Synthesizer) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		synthesizer: synthesizer,
		now:         time.Now,
	}
}

// ValidateUpload checks the filename before any bytes are parsed.
func ValidateUpload(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return apperr.NewValidationError("pdf_file", "Please upload a PDF file.")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return apperr.NewValidationError("pdf_file", "Only .pdf files are accepted.")
	}
	return nil
}

// Convert extracts the document's text and synthesizes it. The synthesizer
// is not called when extraction yields no text.
func (p *Pipeline) Convert(ctx context.Context, doc UploadedDocument, opts tts.Options) (artifact *AudioArtifact, err error) {
	start := p.now()
	logger := observability.FromContext(ctx)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(apperr.Classify(err).Kind())
		}
		observability.RecordConversion(outcome, time.Since(start))
	}()

	if err := ValidateUpload(doc.Filename); err != nil {
		return nil, err
	}

	result, err := p.extractor.Extract(ctx, doc.Data)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("filename", doc.Filename).
		Int("bytes", len(doc.Data)).
		Int("pages", result.PageCount).
		Int("pages_with_text", result.PagesWithText).
		Int("words", result.WordCount).
		Msg("Extracted document text")

	speech, err := p.synthesizer.Synthesize(ctx, result.Text, opts)
	if err != nil {
		return nil, err
	}

	created := p.now()
	id := xid.New().String()
	artifact = &AudioArtifact{
		ID:          id,
		Filename:    ArtifactName(created, id),
		ContentType: ContentTypeMP3,
		Data:        speech.Data,
		Duration:    speech.Duration,
		CreatedAt:   created,
	}

	logger.Info().
		Str("artifact", artifact.Filename).
		Int("bytes", len(speech.Data)).
		Dur("audio_duration", speech.Duration).
		Dur("elapsed", time.Since(start)).
		Msg("Conversion complete")
	return artifact, nil
}

// ArtifactName formats the audio_<YYYYmmddHHMMSS>_<id>.mp3 download name.
func ArtifactName(t time.Time, id string) string {
	return fmt.Sprintf("audio_%s_%s.mp3", t.Format("20060102150405"), id)
}
