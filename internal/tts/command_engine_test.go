package tts

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellEngine(t *testing.T, scripts ...string) (*CommandEngine, string) {
	t.Helper()
	dir := t.TempDir()
	steps := make([]Step, len(scripts))
	for i, s := range scripts {
		steps[i] = Step{Binary: "/bin/sh", Args: []string{"-c", s}}
	}
	return NewCommandEngine("shell", steps, dir), dir
}

func assertNoWorkspaceLeft(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace was not removed")
}

var testVoice = Voice{Language: "en-US", Code: "en", Name: "com", Rate: 1.2}

func TestCommandEngine_OutputReturned(t *testing.T) {
	engine, dir := shellEngine(t, "cp {text_file} {output}")

	data, err := engine.Synthesize(context.Background(), "Hello world.\n", testVoice)
	require.NoError(t, err)
	assert.Equal(t, "Hello world.\n", string(data))
	assertNoWorkspaceLeft(t, dir)
}

func TestCommandEngine_ExpandsPlaceholders(t *testing.T) {
	engine, _ := shellEngine(t, "printf '%s|%s|%s|%s' {lang} {voice} {rate} {wpm} > {output}")

	data, err := engine.Synthesize(context.Background(), "x", testVoice)
	require.NoError(t, err)
	assert.Equal(t, "en|com|1.2|210", string(data))
}

func TestCommandEngine_MultiStepSharesWorkspace(t *testing.T) {
	engine, dir := shellEngine(t,
		"tr a-z A-Z < {text_file} > {wav}",
		"cp {wav} {output}",
	)

	data, err := engine.Synthesize(context.Background(), "quiet", testVoice)
	require.NoError(t, err)
	assert.Equal(t, "QUIET", string(data))
	assertNoWorkspaceLeft(t, dir)
}

func TestCommandEngine_NoOutput(t *testing.T) {
	engine, dir := shellEngine(t, "true")

	_, err := engine.Synthesize(context.Background(), "Hello", testVoice)
	assert.True(t, errors.Is(err, ErrNoOutput), "expected ErrNoOutput, got %v", err)
	assertNoWorkspaceLeft(t, dir)
}

func TestCommandEngine_EmptyOutput(t *testing.T) {
	engine, dir := shellEngine(t, ": > {output}")

	_, err := engine.Synthesize(context.Background(), "Hello", testVoice)
	assert.True(t, errors.Is(err, ErrNoOutput), "expected ErrNoOutput, got %v", err)
	assertNoWorkspaceLeft(t, dir)
}

func TestCommandEngine_FailingStepReportsStderr(t *testing.T) {
	engine, dir := shellEngine(t, "echo 'voice not installed' >&2; exit 3", "cp {text_file} {output}")

	_, err := engine.Synthesize(context.Background(), "Hello", testVoice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice not installed")
	assertNoWorkspaceLeft(t, dir)
}

func TestCommandEngine_DeadlineIsReported(t *testing.T) {
	engine, dir := shellEngine(t, "exec sleep 5")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := engine.Synthesize(ctx, "Hello", testVoice)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline, got %v", err)
	assert.Less(t, time.Since(start), 4*time.Second)
	assertNoWorkspaceLeft(t, dir)
}

func TestCommandEngine_Check(t *testing.T) {
	ok := NewCommandEngine("shell", []Step{{Binary: "sh"}}, "")
	assert.NoError(t, ok.Check(context.Background()))

	missing := NewEspeakEngine("espeak-ng-definitely-missing", "sh", "")
	err := missing.Check(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "espeak-ng-definitely-missing"))
}

func TestPresetEngines(t *testing.T) {
	g := NewGTTSEngine("gtts-cli", "")
	assert.Equal(t, "gtts", g.Name())
	require.Len(t, g.steps, 1)
	assert.Contains(t, g.steps[0].Args, PlaceholderOutput)

	e := NewEspeakEngine("espeak-ng", "ffmpeg", "")
	assert.Equal(t, "espeak", e.Name())
	require.Len(t, e.steps, 2)
	assert.Contains(t, e.steps[0].Args, PlaceholderWAV)
	assert.Contains(t, e.steps[1].Args, PlaceholderOutput)
}
