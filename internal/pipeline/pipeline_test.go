package pipeline

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/pdftext"
	"github.com/lexiqai/pdftoaudio/internal/pdftext/pdftest"
	"github.com/lexiqai/pdftoaudio/internal/tts"
)

func mp3Frames(n int) []byte {
	frame := make([]byte, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})
	return bytes.Repeat(frame, n)
}

type recordingSynthesizer struct {
	mu    sync.Mutex
	texts []string
	opts  []tts.Options
	out   *tts.Speech
	err   error
}

func (r *recordingSynthesizer) Synthesize(ctx context.Context, text string, opts tts.Options) (*tts.Speech, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	r.opts = append(r.opts, opts)
	if r.err != nil {
		return nil, r.err
	}
	if r.out != nil {
		return r.out, nil
	}
	return &tts.Speech{Data: mp3Frames(40), Duration: 40 * 1152 * time.Second / 44100}, nil
}

func (r *recordingSynthesizer) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

var artifactPattern = regexp.MustCompile(`^audio_\d{14}_[0-9a-v]{20}\.mp3$`)

func TestConvert_MultiPagePDF(t *testing.T) {
	synth := &recordingSynthesizer{}
	p := New(pdftext.NewExtractor(), synth)

	doc := UploadedDocument{Filename: "Report.PDF", Data: pdftest.Build("Page one.", "", "Page three.")}
	opts := tts.Options{Language: "en-GB"}

	artifact, err := p.Convert(context.Background(), doc, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Page one.\nPage three.\n"}, synth.texts)
	assert.Equal(t, opts, synth.opts[0])

	assert.NotEmpty(t, artifact.Data)
	assert.Equal(t, ContentTypeMP3, artifact.ContentType)
	assert.Regexp(t, artifactPattern, artifact.Filename)
	assert.Contains(t, artifact.Filename, artifact.ID)
	assert.InDelta(t, 40*1152.0/44100.0, artifact.Duration.Seconds(), 0.01)
	assert.False(t, artifact.CreatedAt.IsZero())
}

func TestConvert_EmptyTextSkipsSynthesizer(t *testing.T) {
	synth := &recordingSynthesizer{}
	p := New(pdftext.NewExtractor(), synth)

	_, err := p.Convert(context.Background(), UploadedDocument{Filename: "scan.pdf", Data: pdftest.Build("", "")}, tts.Options{})

	var emptyErr *apperr.EmptyTextError
	require.True(t, errors.As(err, &emptyErr), "expected EmptyTextError, got %v", err)
	assert.Equal(t, 2, emptyErr.Pages)
	assert.Equal(t, 0, synth.calls())
}

func TestConvert_ExtensionCheckedBeforeParsing(t *testing.T) {
	extractor := &countingExtractor{}
	p := New(extractor, &recordingSynthesizer{})

	_, err := p.Convert(context.Background(), UploadedDocument{Filename: "notes.txt", Data: pdftest.Build("Hello")}, tts.Options{})

	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
	assert.Equal(t, 0, extractor.calls)
}

func TestConvert_ZeroBytePDF(t *testing.T) {
	synth := &recordingSynthesizer{}
	p := New(pdftext.NewExtractor(), synth)

	_, err := p.Convert(context.Background(), UploadedDocument{Filename: "test.pdf"}, tts.Options{})

	c := apperr.Classify(err)
	assert.Equal(t, apperr.KindExtraction, c.Kind())
	assert.Equal(t, 400, c.StatusCode())
	assert.Equal(t, 0, synth.calls())
}

func TestConvert_SynthesisErrorPropagates(t *testing.T) {
	synth := &recordingSynthesizer{err: &apperr.PayloadTooLargeError{Length: 40000, Limit: 30000}}
	p := New(pdftext.NewExtractor(), synth)

	_, err := p.Convert(context.Background(), UploadedDocument{Filename: "big.pdf", Data: pdftest.Build("Hello")}, tts.Options{})

	var tooLarge *apperr.PayloadTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, 40000, tooLarge.Length)
}

func TestConvert_UsesSynthesizerDuration(t *testing.T) {
	speech := &tts.Speech{Data: []byte("verified upstream"), Duration: 3 * time.Second}
	p := New(pdftext.NewExtractor(), &recordingSynthesizer{out: speech})

	artifact, err := p.Convert(context.Background(), UploadedDocument{Filename: "a.pdf", Data: pdftest.Build("Hello")}, tts.Options{})
	require.NoError(t, err)
	assert.Equal(t, speech.Data, artifact.Data)
	assert.Equal(t, 3*time.Second, artifact.Duration)
}

func TestConvert_ConcurrentRequestsGetDistinctNames(t *testing.T) {
	p := New(pdftext.NewExtractor(), &recordingSynthesizer{})
	data := pdftest.Build("Hello world.")

	const n = 25
	names := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			artifact, err := p.Convert(context.Background(), UploadedDocument{Filename: "doc.pdf", Data: data}, tts.Options{})
			if assert.NoError(t, err) {
				names[i] = artifact.Filename
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, name := range names {
		assert.False(t, seen[name], "duplicate artifact name %s", name)
		seen[name] = true
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
	}{
		{"report.pdf", true},
		{"REPORT.PDF", true},
		{"archive.tar.pdf", true},
		{"", false},
		{"   ", false},
		{"report.pdf.exe", false},
		{"report", false},
		{"pdf", false},
	}

	for _, tt := range tests {
		err := ValidateUpload(tt.filename)
		if tt.valid {
			assert.NoError(t, err, tt.filename)
			continue
		}
		var valErr *apperr.ValidationError
		assert.True(t, errors.As(err, &valErr), "%q: expected ValidationError, got %v", tt.filename, err)
	}
}

func TestArtifactName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "audio_20240309140507_abc.mp3", ArtifactName(ts, "abc"))
	assert.Regexp(t, artifactPattern, ArtifactName(time.Now(), xid.New().String()))
}

type countingExtractor struct {
	calls int
}

func (c *countingExtractor) Extract(ctx context.Context, data []byte) (*pdftext.Result, error) {
	c.calls++
	return &pdftext.Result{Text: "x\n", PageCount: 1, PagesWithText: 1, WordCount: 1}, nil
}
