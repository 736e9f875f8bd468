package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/lexiqai/pdftoaudio/internal/config"
	"github.com/lexiqai/pdftoaudio/internal/observability"
	"github.com/lexiqai/pdftoaudio/internal/resilience"
)

// NewBackend constructs the backend selected by cfg.TTSBackend.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.TTSBackend {
	case config.BackendGTTS:
		return NewGTTSEngine(cfg.GTTSBinary, cfg.TempDir), nil
	case config.BackendEspeak:
		return NewEspeakEngine(cfg.EspeakBinary, cfg.FFmpegBinary, cfg.TempDir), nil
	case config.BackendGoogle:
		c, err := NewGoogleClient(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendDeepgram:
		c, err := NewDeepgramClient(cfg.DeepgramAPIKey, cfg.DeepgramHost)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendCartesia:
		c, err := NewCartesiaClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown TTS backend %q", cfg.TTSBackend)
}

// NewServiceFromConfig wires backend into a Service. Cloud backends get a
// circuit breaker and retries; local engines run once per request.
func NewServiceFromConfig(cfg *config.Config, backend Backend, catalog *Catalog, opts ...ServiceOption) (*Service, error) {
	if cfg.IsCloudBackend() {
		breaker := resilience.NewCircuitBreaker(
			backend.Name(),
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
			resilience.WithStateChange(func(name string, from, to resilience.CircuitState) {
				observability.UpdateCircuitBreakerState(name, int(to))
				logger := observability.GetLogger()
				logger.Warn().
					Str("backend", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			}),
			resilience.WithFailureHook(observability.IncrementCircuitBreakerFailures),
			resilience.WithHalfOpenMax(cfg.CircuitBreakerHalfOpenMax),
		)
		observability.UpdateCircuitBreakerState(breaker.Name(), int(resilience.StateClosed))

		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.RetryMaxAttempts
		retry.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond

		opts = append([]ServiceOption{WithCircuitBreaker(breaker), WithRetry(retry)}, opts...)
	}

	defaults := Defaults{
		Language: cfg.TTSLanguage,
		Voice:    cfg.TTSVoice,
		Rate:     cfg.TTSSpeakingRate,
	}
	return NewService(backend, catalog, defaults, cfg.MaxTextChars, cfg.SynthesisTimeout, opts...)
}
