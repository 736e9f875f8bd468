package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/audio"
	"github.com/lexiqai/pdftoaudio/internal/cache"
	"github.com/lexiqai/pdftoaudio/internal/observability"
	"github.com/lexiqai/pdftoaudio/internal/resilience"
)

// AudioCache stores synthesized MP3s. *cache.AudioCache implements it.
type AudioCache interface {
	Get(ctx context.Context, key cache.Key) ([]byte, bool, error)
	Set(ctx context.Context, key cache.Key, data []byte) error
}

// Defaults fill the fields a caller leaves empty.
type Defaults struct {
	Language string
	Voice    string
	Rate     float64
}

// Service wraps one Backend with the length limit, voice resolution,
// caching, timeout, resilience and output checks. It implements Synthesizer
// and is safe for concurrent use.
type Service struct {
	backend  Backend
	catalog  *Catalog
	defaults Defaults
	maxChars int
	timeout  time.Duration

	cache   AudioCache
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache serves repeated requests from c.
func WithCache(c AudioCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithCircuitBreaker fails fast while the backend is known to be down.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) ServiceOption {
	return func(s *Service) { s.breaker = cb }
}

// WithRetry retries transient backend failures.
func WithRetry(cfg *resilience.RetryConfig) ServiceOption {
	return func(s *Service) { s.retry = cfg }
}

// NewService validates the default voice against the catalogue so a
// misconfiguration fails at startup rather than on the first upload.
func NewService(backend Backend, catalog *Catalog, defaults Defaults, maxChars int, timeout time.Duration, opts ...ServiceOption) (*Service, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max text chars must be positive, got %d", maxChars)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("synthesis timeout must be positive, got %s", timeout)
	}

	s := &Service{
		backend:  backend,
		catalog:  catalog,
		defaults: defaults,
		maxChars: maxChars,
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.resolve(Options{}); err != nil {
		return nil, fmt.Errorf("default voice for %s backend: %w", backend.Name(), err)
	}
	return s, nil
}

// Backend returns the wrapped backend name.
func (s *Service) Backend() string {
	return s.backend.Name()
}

// MaxChars returns the text length limit.
func (s *Service) MaxChars() int {
	return s.maxChars
}

// Synthesize converts text to MP3 audio. Errors are classified in the
// apperr taxonomy: PayloadTooLargeError, ValidationError or SynthesisError.
func (s *Service) Synthesize(ctx context.Context, text string, opts Options) (*Speech, error) {
	logger := observability.FromContext(ctx)
	name := s.backend.Name()

	length := utf8.RuneCountInString(text)
	if length > s.maxChars {
		return nil, &apperr.PayloadTooLargeError{Length: length, Limit: s.maxChars}
	}

	voice, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}

	key := cache.Key{Backend: name, Language: voice.Language, Voice: voice.Name, Rate: voice.Rate, Text: text}
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			observability.RecordCacheLookup("error")
			logger.Warn().Err(err).Msg("Audio cache read failed")
		case ok:
			if speech, err := verify(name, data); err == nil {
				observability.RecordCacheLookup("hit")
				logger.Debug().Str("backend", name).Msg("Serving audio from cache")
				return speech, nil
			}
			observability.RecordCacheLookup("error")
			logger.Warn().Str("backend", name).Msg("Discarding unreadable cached audio")
		default:
			observability.RecordCacheLookup("miss")
		}
	}

	start := time.Now()
	speech, err := s.call(ctx, text, voice)
	elapsed := time.Since(start)
	observability.RecordSynthesis(name, elapsed, length, err == nil)
	if err != nil {
		logger.Error().Err(err).Str("backend", name).Dur("elapsed", elapsed).Msg("Synthesis failed")
		return nil, err
	}

	logger.Info().
		Str("backend", name).
		Str("voice", voice.Name).
		Int("chars", length).
		Int("bytes", len(speech.Data)).
		Dur("audio_duration", speech.Duration).
		Dur("elapsed", elapsed).
		Msg("Synthesized speech")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, speech.Data); err != nil {
			logger.Warn().Err(err).Msg("Audio cache write failed")
		}
	}
	return speech, nil
}

// call runs the backend under the timeout, breaker and retry policy and
// verifies the result is playable MP3.
func (s *Service) call(ctx context.Context, text string, voice Voice) (*Speech, error) {
	name := s.backend.Name()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var data []byte
	attempt := func(ctx context.Context) error {
		out, err := s.backend.Synthesize(ctx, text, voice)
		if err != nil {
			return err
		}
		data = out
		return nil
	}

	run := attempt
	if s.retry != nil {
		run = func(ctx context.Context) error {
			return resilience.Retry(ctx, attempt, s.retry, resilience.IsRetryableNetworkError)
		}
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(callCtx, run)
	} else {
		err = run(callCtx)
	}

	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			return nil, &apperr.SynthesisError{Backend: name, Message: "backend temporarily unavailable", Cause: err, Unavailable: true}
		}
		synthErr := apperr.NewSynthesisError(name, "backend call failed", err)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			synthErr.Timeout = true
		}
		return nil, synthErr
	}

	return verify(name, data)
}

// verify inspects data as MP3 with a positive duration.
func verify(backend string, data []byte) (*Speech, error) {
	info, err := audio.InspectMP3(data)
	if err != nil {
		return nil, apperr.NewSynthesisError(backend, "backend returned invalid audio", err)
	}
	if info.Duration <= 0 {
		return nil, apperr.NewSynthesisError(backend, "backend returned silent audio", nil)
	}
	return &Speech{Data: data, Duration: info.Duration}, nil
}

func (s *Service) resolve(opts Options) (Voice, error) {
	if opts.Language == "" {
		opts.Language = s.defaults.Language
	}
	// The configured voice belongs to the configured language only.
	if opts.VoiceName == "" && strings.EqualFold(opts.Language, s.defaults.Language) {
		opts.VoiceName = s.defaults.Voice
	}
	if opts.SpeakingRate == 0 {
		opts.SpeakingRate = s.defaults.Rate
	}
	return s.catalog.Resolve(s.backend.Name(), opts)
}

// Check reports backend health and whether the circuit is open.
func (s *Service) Check(ctx context.Context) error {
	if s.breaker != nil {
		state, requests, failures, _ := s.breaker.GetStats()
		if state == resilience.StateOpen {
			return fmt.Errorf("%s circuit breaker is open (%d of %d calls failed)", s.backend.Name(), failures, requests)
		}
	}
	return s.backend.Check(ctx)
}

// Close releases the backend.
func (s *Service) Close() error {
	return s.backend.Close()
}
