package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lexiqai/pdftoaudio/internal/config"
	"github.com/lexiqai/pdftoaudio/internal/resilience"
)

// GoogleClient implements Backend with Google Cloud Text-to-Speech. The
// underlying gRPC client is safe for concurrent use.
type GoogleClient struct {
	client *texttospeech.Client
}

// NewGoogleClient dials the API. With an empty credentialsFile the library
// falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewGoogleClient(ctx context.Context, credentialsFile string) (*GoogleClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google TTS client: %w", err)
	}
	return &GoogleClient{client: client}, nil
}

// Name returns the backend name.
func (g *GoogleClient) Name() string {
	return config.BackendGoogle
}

// Synthesize requests MP3 audio for text.
func (g *GoogleClient) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.Code,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  voice.Rate,
		},
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, classifyGRPCError(err)
	}
	return resp.GetAudioContent(), nil
}

// Check lists voices for the default language as a cheap authenticated call.
func (g *GoogleClient) Check(ctx context.Context) error {
	_, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: "en-US"})
	if err != nil {
		return fmt.Errorf("google tts: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (g *GoogleClient) Close() error {
	return g.client.Close()
}

// classifyGRPCError marks transient gRPC codes as retryable.
func classifyGRPCError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return resilience.NewRetryableError(fmt.Errorf("google tts: %w", err))
	}
	return fmt.Errorf("google tts: %w", err)
}
