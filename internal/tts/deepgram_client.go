package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	speak "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/speak"

	"github.com/lexiqai/pdftoaudio/internal/config"
	"github.com/lexiqai/pdftoaudio/internal/resilience"
)

// Deepgram's speak endpoint rejects longer inputs, so text is sent in chunks
// and the resulting MP3 streams are concatenated frame-aligned.
const deepgramMaxChars = 2000

// DeepgramClient implements Backend with Deepgram's Aura speak REST API.
// Each call is an independent request; the client holds no per-call state.
type DeepgramClient struct {
	client *api.Client
}

// NewDeepgramClient creates a speak REST client. host overrides the API
// host when non-empty.
func NewDeepgramClient(apiKey, host string) (*DeepgramClient, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: API key is required")
	}
	c := speak.NewREST(apiKey, &interfaces.ClientOptions{Host: host})
	return &DeepgramClient{client: api.New(c)}, nil
}

// Name returns the backend name.
func (d *DeepgramClient) Name() string {
	return config.BackendDeepgram
}

// Synthesize requests MP3 audio from the Aura model named by voice.Name.
func (d *DeepgramClient) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	options := &interfaces.SpeakOptions{
		Model:    voice.Name,
		Encoding: "mp3",
	}

	var out []byte
	for _, chunk := range splitText(text, deepgramMaxChars) {
		var buffer interfaces.RawResponse
		if _, err := d.client.ToStream(ctx, chunk, options, &buffer); err != nil {
			return nil, classifyDeepgramError(err)
		}
		out = append(out, buffer.Bytes()...)
	}
	return out, nil
}

// Check only validates configuration; Deepgram has no free health endpoint.
func (d *DeepgramClient) Check(ctx context.Context) error {
	if d.client == nil {
		return errors.New("deepgram client not initialised")
	}
	return nil
}

// Close is a no-op; the REST client holds no connections of its own.
func (d *DeepgramClient) Close() error {
	return nil
}

func classifyDeepgramError(err error) error {
	wrapped := fmt.Errorf("deepgram: %w", err)
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, s) {
			return resilience.NewRetryableError(wrapped)
		}
	}
	return wrapped
}

// splitText cuts text into pieces of at most limit runes, preferring
// sentence and then word boundaries.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := lastBoundary(runes[:limit], ".!?\n")
		if cut <= 0 {
			cut = lastBoundary(runes[:limit], " \t")
		}
		if cut <= 0 {
			cut = limit
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			chunks = append(chunks, piece)
		}
		runes = runes[cut:]
	}
	if piece := strings.TrimSpace(string(runes)); piece != "" {
		chunks = append(chunks, piece)
	}
	return chunks
}

// lastBoundary returns the index just after the last rune in set, or 0.
func lastBoundary(runes []rune, set string) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if strings.ContainsRune(set, runes[i]) {
			return i + 1
		}
	}
	return 0
}
