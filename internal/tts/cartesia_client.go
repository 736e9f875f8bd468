package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lexiqai/pdftoaudio/internal/config"
	"github.com/lexiqai/pdftoaudio/internal/resilience"
)

const cartesiaVersion = "2024-11-13"

// CartesiaClient implements Backend using Cartesia's /tts/bytes endpoint,
// which returns the whole MP3 in one response body.
type CartesiaClient struct {
	apiKey     string
	apiURL     string
	modelID    string
	httpClient *http.Client
}

// CartesiaRequest represents the request payload for Cartesia TTS API
type CartesiaRequest struct {
	ModelID          string                    `json:"model_id"`
	Transcript       string                    `json:"transcript"`
	Voice            CartesiaVoice             `json:"voice"`
	OutputFormat     CartesiaOutputFormat      `json:"output_format"`
	Language         string                    `json:"language,omitempty"`
	GenerationConfig *CartesiaGenerationConfig `json:"generation_config,omitempty"`
}

// CartesiaVoice selects a voice by ID.
type CartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// CartesiaOutputFormat requests an MP3 container.
type CartesiaOutputFormat struct {
	Container  string `json:"container"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate"`
}

// CartesiaGenerationConfig carries the speaking rate.
type CartesiaGenerationConfig struct {
	Speed float64 `json:"speed"`
}

// NewCartesiaClient creates a new Cartesia TTS client
func NewCartesiaClient(cfg *config.Config) (*CartesiaClient, error) {
	if cfg.CartesiaAPIKey == "" {
		return nil, errors.New("cartesia: API key is required")
	}
	return &CartesiaClient{
		apiKey:  cfg.CartesiaAPIKey,
		apiURL:  cfg.CartesiaAPIURL,
		modelID: cfg.CartesiaModelID,
		// Per-call deadlines come from the context.
		httpClient: &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}},
	}, nil
}

// Name returns the backend name.
func (c *CartesiaClient) Name() string {
	return config.BackendCartesia
}

// Synthesize converts text to MP3 audio.
func (c *CartesiaClient) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	reqBody := CartesiaRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice:      CartesiaVoice{Mode: "id", ID: voice.Name},
		OutputFormat: CartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    128000,
		},
		Language: voice.Code,
	}
	if voice.Rate != 0 && voice.Rate != 1 {
		reqBody.GenerationConfig = &CartesiaGenerationConfig{Speed: voice.Rate}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("cartesia API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, resilience.NewRetryableError(err)
		}
		return nil, err
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cartesia audio response: %w", err)
	}
	return audioData, nil
}

// Check verifies the client is configured; Cartesia bills every synthesis.
func (c *CartesiaClient) Check(ctx context.Context) error {
	if c.apiKey == "" || c.apiURL == "" {
		return errors.New("cartesia client not configured")
	}
	return nil
}

// Close releases idle connections.
func (c *CartesiaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
