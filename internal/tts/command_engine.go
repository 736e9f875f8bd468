package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/lexiqai/pdftoaudio/internal/config"
	"github.com/lexiqai/pdftoaudio/internal/observability"
	"github.com/lexiqai/pdftoaudio/internal/scratch"
)

// ErrNoOutput is returned when an engine exits cleanly but leaves no audio.
var ErrNoOutput = errors.New("engine produced no output")

// Placeholders expanded in Step arguments.
const (
	PlaceholderTextFile = "{text_file}" // UTF-8 input text
	PlaceholderWAV      = "{wav}"       // intermediate WAV path
	PlaceholderOutput   = "{output}"    // final MP3 path
	PlaceholderLang     = "{lang}"      // engine language code
	PlaceholderVoice    = "{voice}"     // voice name
	PlaceholderRate     = "{rate}"      // speaking rate multiplier
	PlaceholderWPM      = "{wpm}"       // rate as words per minute
)

// espeak-ng's default speed.
const baseWordsPerMinute = 175

// maxStderr caps how much engine stderr is kept for error messages.
const maxStderr = 2048

// Step is one external command in an engine pipeline.
type Step struct {
	Binary string
	Args   []string
}

// CommandEngine synthesizes by running external programs in a private
// workspace that is removed after every call.
type CommandEngine struct {
	name    string
	steps   []Step
	tempDir string
}

// NewCommandEngine builds an engine from steps. The last step must write
// the MP3 to {output}.
func NewCommandEngine(name string, steps []Step, tempDir string) *CommandEngine {
	return &CommandEngine{name: name, steps: steps, tempDir: tempDir}
}

// NewGTTSEngine runs gtts-cli, which writes MP3 directly.
func NewGTTSEngine(binary, tempDir string) *CommandEngine {
	return NewCommandEngine(config.BackendGTTS, []Step{{
		Binary: binary,
		Args:   []string{"--file", PlaceholderTextFile, "--lang", PlaceholderLang, "--tld", PlaceholderVoice, "--output", PlaceholderOutput},
	}}, tempDir)
}

// NewEspeakEngine renders WAV with espeak-ng and encodes it with ffmpeg.
func NewEspeakEngine(espeakBinary, ffmpegBinary, tempDir string) *CommandEngine {
	return NewCommandEngine(config.BackendEspeak, []Step{
		{
			Binary: espeakBinary,
			Args:   []string{"-v", PlaceholderVoice, "-s", PlaceholderWPM, "-f", PlaceholderTextFile, "-w", PlaceholderWAV},
		},
		{
			Binary: ffmpegBinary,
			Args:   []string{"-hide_banner", "-loglevel", "error", "-y", "-i", PlaceholderWAV, "-codec:a", "libmp3lame", "-b:a", "128k", PlaceholderOutput},
		},
	}, tempDir)
}

// Name returns the backend name.
func (e *CommandEngine) Name() string {
	return e.name
}

// Synthesize writes text to the workspace, runs every step and returns the
// bytes found at {output}.
func (e *CommandEngine) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	logger := observability.FromContext(ctx)

	ws, err := scratch.New(e.tempDir, "tts-"+e.name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn().Err(err).Str("dir", ws.Dir()).Msg("Failed to remove synthesis workspace")
		}
	}()

	textFile, err := ws.WriteFile("input.txt", []byte(text))
	if err != nil {
		return nil, err
	}
	output := ws.Path("output.mp3")

	expand := strings.NewReplacer(
		PlaceholderTextFile, textFile,
		PlaceholderWAV, ws.Path("speech.wav"),
		PlaceholderOutput, output,
		PlaceholderLang, voice.Code,
		PlaceholderVoice, voice.Name,
		PlaceholderRate, strconv.FormatFloat(voice.Rate, 'f', -1, 64),
		PlaceholderWPM, strconv.Itoa(int(math.Round(baseWordsPerMinute*voice.Rate))),
	)

	for _, step := range e.steps {
		args := make([]string, len(step.Args))
		for i, a := range step.Args {
			args[i] = expand.Replace(a)
		}
		if err := runStep(ctx, ws.Dir(), step.Binary, args); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(output)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", e.name, ErrNoOutput)
		}
		return nil, fmt.Errorf("%s: read output: %w", e.name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w (empty file)", e.name, ErrNoOutput)
	}
	return data, nil
}

func runStep(ctx context.Context, dir, binary string, args []string) error {
	logger := observability.FromContext(ctx)
	start := time.Now()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr
	// Grandchildren can hold stderr open after the process is killed.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	logger.Debug().
		Str("binary", binary).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Engine step finished")

	if err == nil {
		return nil
	}
	// A killed process reports "signal: killed"; surface the deadline instead.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", binary, ctxErr)
	}
	msg := strings.TrimSpace(stderr.String())
	if len(msg) > maxStderr {
		msg = msg[:maxStderr]
	}
	if msg != "" {
		return fmt.Errorf("%s: %w: %s", binary, err, msg)
	}
	return fmt.Errorf("%s: %w", binary, err)
}

// Check verifies every binary is on PATH.
func (e *CommandEngine) Check(ctx context.Context) error {
	seen := make(map[string]bool)
	for _, step := range e.steps {
		if seen[step.Binary] {
			continue
		}
		seen[step.Binary] = true
		if _, err := exec.LookPath(step.Binary); err != nil {
			return fmt.Errorf("%s not found: %w", step.Binary, err)
		}
	}
	return nil
}

// Close is a no-op; the engine holds no resources between calls.
func (e *CommandEngine) Close() error {
	return nil
}
