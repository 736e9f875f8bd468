package tts

import (
	"context"
	"time"
)

// Options is what a caller asks for. Empty fields take configured defaults.
type Options struct {
	Language     string  // BCP-47 tag, e.g. "en-US"
	VoiceName    string  // Backend voice; empty picks the language default
	SpeakingRate float64 // 1.0 is normal speed; 0 means default
}

// Voice is Options resolved against the catalogue for one backend.
type Voice struct {
	Language string  // BCP-47 tag as requested
	Code     string  // Engine language code, e.g. "en" for gtts
	Name     string  // Concrete voice identifier
	Rate     float64 // Speaking rate within the backend's range
}

// Backend converts text to MP3 bytes with one engine or API. Implementations
// are safe for concurrent use.
type Backend interface {
	// Name returns the TTS_BACKEND value that selects this backend
	Name() string

	// Synthesize returns MP3 audio for text
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)

	// Check reports whether the backend can currently serve requests
	Check(ctx context.Context) error

	// Close releases clients and connections
	Close() error
}

// Speech is verified MP3 audio and its playing time.
type Speech struct {
	Data     []byte
	Duration time.Duration
}

// Synthesizer is the pipeline-facing speech interface. Returned Speech has
// already been verified as playable MP3.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts Options) (*Speech, error)
}
