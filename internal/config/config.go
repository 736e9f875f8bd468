package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend names accepted by TTS_BACKEND.
const (
	BackendGTTS     = "gtts"     // local engine (gtts-cli writes the MP3 to disk)
	BackendEspeak   = "espeak"   // offline engine (espeak-ng + ffmpeg)
	BackendGoogle   = "google"   // Google Cloud Text-to-Speech
	BackendDeepgram = "deepgram" // Deepgram Aura speak API
	BackendCartesia = "cartesia" // Cartesia /tts/bytes
)

// Emit strategies accepted by EMIT_STRATEGY.
const (
	EmitMemory = "memory"
	EmitFile   = "file"
)

// Config holds all configuration for the pdftoaudio service
type Config struct {
	// Server configuration
	Port               string   `envconfig:"PORT" default:"8080"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"` // Comma-separated

	// Upload and text limits
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"` // 50MB
	MaxTextChars   int   `envconfig:"MAX_TEXT_CHARS" default:"30000"`

	// Synthesis configuration
	TTSBackend       string        `envconfig:"TTS_BACKEND" default:"gtts"`
	TTSLanguage      string        `envconfig:"TTS_LANGUAGE" default:"en-US"` // BCP-47
	TTSVoice         string        `envconfig:"TTS_VOICE" default:""`         // Empty picks the language default
	TTSSpeakingRate  float64       `envconfig:"TTS_SPEAKING_RATE" default:"1.0"`
	TTSCatalogPath   string        `envconfig:"TTS_CATALOG_PATH" default:""` // Optional YAML voice catalogue override
	SynthesisTimeout time.Duration `envconfig:"SYNTHESIS_TIMEOUT" default:"60s"`

	// Response emitter: memory or file
	EmitStrategy string `envconfig:"EMIT_STRATEGY" default:"memory"`
	TempDir      string `envconfig:"TEMP_DIR" default:""` // Empty uses os.TempDir()

	// Local and offline engine binaries
	GTTSBinary   string `envconfig:"GTTS_BINARY" default:"gtts-cli"`
	EspeakBinary string `envconfig:"ESPEAK_BINARY" default:"espeak-ng"`
	FFmpegBinary string `envconfig:"FFMPEG_BINARY" default:"ffmpeg"`

	// Google Cloud TTS. GOOGLE_APPLICATION_CREDENTIALS is honoured by the client
	// library; GOOGLE_CREDENTIALS_FILE points it at an explicit key file.
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE" default:""`

	// Deepgram speak API configuration
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramHost   string `envconfig:"DEEPGRAM_HOST" default:""`

	// Cartesia TTS API configuration
	CartesiaAPIKey  string `envconfig:"CARTESIA_API_KEY" default:""`
	CartesiaModelID string `envconfig:"CARTESIA_MODEL_ID" default:"sonic-2"`
	CartesiaAPIURL  string `envconfig:"CARTESIA_API_URL" default:"https://api.cartesia.ai/tts/bytes"`

	// Audio cache (disabled when REDIS_ADDR is empty)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	AudioCacheTTL time.Duration `envconfig:"AUDIO_CACHE_TTL" default:"24h"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	CircuitBreakerHalfOpenMax  int `envconfig:"CIRCUIT_BREAKER_HALF_OPEN_MAX" default:"1"`  // Trial requests admitted while half-open
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"200"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`   // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"` // Pretty print logs (for development)
	LogFile        string `envconfig:"LOG_FILE" default:""`        // Optional rotating log file
	LogMaxSizeMB   int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups  int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	LogMaxAgeDays  int    `envconfig:"LOG_MAX_AGE_DAYS" default:"28"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:""`    // Optional grpc.health.v1 listener
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.TTSBackend = strings.ToLower(strings.TrimSpace(cfg.TTSBackend))
	cfg.EmitStrategy = strings.ToLower(strings.TrimSpace(cfg.EmitStrategy))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks limits, enumerations and the credentials the selected
// backend needs. Missing cloud credentials are a startup error.
func (c *Config) Validate() error {
	switch c.TTSBackend {
	case BackendGTTS, BackendEspeak:
	case BackendGoogle:
		if c.GoogleCredentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS_FILE or GOOGLE_APPLICATION_CREDENTIALS is required for the google backend")
		}
	case BackendDeepgram:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required for the deepgram backend")
		}
	case BackendCartesia:
		if c.CartesiaAPIKey == "" {
			return fmt.Errorf("CARTESIA_API_KEY is required for the cartesia backend")
		}
	default:
		return fmt.Errorf("unknown TTS_BACKEND %q", c.TTSBackend)
	}

	if c.MaxTextChars <= 0 {
		return fmt.Errorf("MAX_TEXT_CHARS must be positive, got %d", c.MaxTextChars)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.SynthesisTimeout <= 0 {
		return fmt.Errorf("SYNTHESIS_TIMEOUT must be positive, got %s", c.SynthesisTimeout)
	}
	if c.TTSSpeakingRate <= 0 {
		return fmt.Errorf("TTS_SPEAKING_RATE must be greater than 0, got %v", c.TTSSpeakingRate)
	}
	if c.EmitStrategy != EmitMemory && c.EmitStrategy != EmitFile {
		return fmt.Errorf("EMIT_STRATEGY must be %q or %q, got %q", EmitMemory, EmitFile, c.EmitStrategy)
	}
	return nil
}

// IsCloudBackend reports whether the selected backend calls a remote API.
func (c *Config) IsCloudBackend() bool {
	switch c.TTSBackend {
	case BackendGoogle, BackendDeepgram, BackendCartesia:
		return true
	}
	return false
}

// CacheEnabled reports whether synthesized audio is cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// WriteTimeout returns an HTTP write timeout that always outlives a synthesis
// call, so a slow backend surfaces as a 504 instead of a dropped connection.
func (c *Config) WriteTimeout() time.Duration {
	return c.SynthesisTimeout + 30*time.Second
}
