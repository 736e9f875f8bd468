package web

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/lexiqai/pdftoaudio/internal/config"
	"github.com/lexiqai/pdftoaudio/internal/observability"
	"github.com/lexiqai/pdftoaudio/internal/pipeline"
	"github.com/lexiqai/pdftoaudio/internal/scratch"
)

const durationHeader = "X-Audio-Duration-Seconds"

// Emitter writes a finished artifact to the client as a download.
type Emitter interface {
	Emit(w http.ResponseWriter, r *http.Request, artifact *pipeline.AudioArtifact) error
}

// NewEmitter returns the emitter for an EMIT_STRATEGY value.
func NewEmitter(strategy, tempDir string) (Emitter, error) {
	switch strategy {
	case config.EmitMemory, "":
		return MemoryEmitter{}, nil
	case config.EmitFile:
		return FileEmitter{TempDir: tempDir}, nil
	default:
		return nil, fmt.Errorf("unknown emit strategy %q", strategy)
	}
}

// MemoryEmitter streams the artifact bytes straight from memory.
type MemoryEmitter struct{}

func (MemoryEmitter) Emit(w http.ResponseWriter, r *http.Request, artifact *pipeline.AudioArtifact) error {
	setDownloadHeaders(w, artifact)
	http.ServeContent(w, r, artifact.Filename, artifact.CreatedAt, bytes.NewReader(artifact.Data))
	observability.RecordAudio(len(artifact.Data), artifact.Duration)
	return nil
}

// FileEmitter writes the artifact to a scratch directory, serves it from
// disk and removes it once the response is written.
type FileEmitter struct {
	TempDir string
}

func (e FileEmitter) Emit(w http.ResponseWriter, r *http.Request, artifact *pipeline.AudioArtifact) error {
	ws, err := scratch.New(e.TempDir, "emit")
	if err != nil {
		return err
	}
	defer ws.Close()

	path, err := ws.WriteFile(artifact.Filename, artifact.Data)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	setDownloadHeaders(w, artifact)
	http.ServeContent(w, r, artifact.Filename, artifact.CreatedAt, f)
	observability.RecordAudio(len(artifact.Data), artifact.Duration)
	return nil
}

func setDownloadHeaders(w http.ResponseWriter, artifact *pipeline.AudioArtifact) {
	h := w.Header()
	h.Set("Content-Type", artifact.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	h.Set("Cache-Control", "no-store")
	h.Set(durationHeader, strconv.FormatFloat(artifact.Duration.Seconds(), 'f', 3, 64))
}
