package observability

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions configures the global logger.
type LoggerOptions struct {
	Level  string
	Pretty bool

	// File enables a rotating log file next to stdout.
	File          string
	MaxSizeMB     int
	MaxBackups    int
	MaxAgeDays    int
	CompressFiles bool
}

var (
	globalLogger zerolog.Logger
	initOnce     sync.Once
)

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// InitLogger initializes the global structured logger. Only the first call
// has an effect.
func InitLogger(opts LoggerOptions) {
	initOnce.Do(func() {
		zerolog.SetGlobalLevel(ParseLevel(opts.Level))
		globalLogger = NewLogger(opts)
		log.Logger = globalLogger
	})
}

// NewLogger builds a logger from opts without touching global state.
func NewLogger(opts LoggerOptions) zerolog.Logger {
	var out io.Writer = os.Stdout
	if opts.Pretty {
		// Pretty console output for development
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.CompressFiles,
		}
		out = zerolog.MultiLevelWriter(out, rotating)
	}

	return zerolog.New(out).Level(ParseLevel(opts.Level)).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	InitLogger(LoggerOptions{Level: "info"})
	return globalLogger
}

// WithCorrelationID creates a logger with a correlation ID
func WithCorrelationID(correlationID string) zerolog.Logger {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return GetLogger().With().Str("correlation_id", correlationID).Logger()
}

// NewCorrelationID generates a new correlation ID
func NewCorrelationID() string {
	return uuid.New().String()
}

// FromContext returns the request-scoped logger stored by the HTTP middleware,
// or the global logger when none is attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	l := GetLogger()
	return &l
}
