package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/pdftoaudio/internal/cache"
	"github.com/lexiqai/pdftoaudio/internal/config"
	"github.com/lexiqai/pdftoaudio/internal/observability"
	"github.com/lexiqai/pdftoaudio/internal/pdftext"
	"github.com/lexiqai/pdftoaudio/internal/pipeline"
	"github.com/lexiqai/pdftoaudio/internal/tts"
	"github.com/lexiqai/pdftoaudio/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(observability.LoggerOptions{
		Level:      cfg.LogLevel,
		Pretty:     cfg.LogPretty,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("tts_backend", cfg.TTSBackend).
		Str("tts_language", cfg.TTSLanguage).
		Str("emit_strategy", cfg.EmitStrategy).
		Int("max_text_chars", cfg.MaxTextChars).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("PDF to Audio service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := tts.LoadCatalog(cfg.TTSCatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load voice catalog")
	}

	backend, err := tts.NewBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.TTSBackend).Msg("Failed to create TTS backend")
	}

	// A missing local engine is reported by /ready rather than stopping startup.
	if !cfg.IsCloudBackend() {
		if err := backend.Check(ctx); err != nil {
			logger.Warn().Err(err).Str("backend", cfg.TTSBackend).Msg("TTS engine not available")
		}
	}

	var serviceOpts []tts.ServiceOption
	checks := observability.HealthChecks{}

	if cfg.CacheEnabled() {
		audioCache, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.AudioCacheTTL)
		if err != nil {
			logger.Warn().Err(err).Str("redis_addr", cfg.RedisAddr).Msg("Audio cache unavailable, continuing without it")
		} else {
			defer audioCache.Close()
			serviceOpts = append(serviceOpts, tts.WithCache(audioCache))
			checks["cache"] = audioCache.Ping
			logger.Info().Str("redis_addr", cfg.RedisAddr).Dur("ttl", cfg.AudioCacheTTL).Msg("Audio cache enabled")
		}
	}

	svc, err := tts.NewServiceFromConfig(cfg, backend, catalog, serviceOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create synthesis service")
	}
	defer svc.Close()
	checks["synthesizer"] = svc.Check

	emitter, err := web.NewEmitter(cfg.EmitStrategy, cfg.TempDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create response emitter")
	}

	rates, _ := catalog.Rates(cfg.TTSBackend)
	handler, err := web.NewHandler(pipeline.New(pdftext.NewExtractor(), svc), emitter, cfg.MaxUploadBytes, web.FormDefaults{
		Backend:      svc.Backend(),
		Languages:    catalog.Languages(cfg.TTSBackend),
		Language:     cfg.TTSLanguage,
		DefaultVoice: cfg.TTSVoice,
		Rate:         cfg.TTSSpeakingRate,
		RateMin:      rates.Min,
		RateMax:      rates.Max,
		MaxChars:     svc.MaxChars(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create HTTP handler")
	}

	routerOpts := web.RouterOptions{
		Checks:         checks,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		routerOpts.Metrics = promhttp.Handler()
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	if cfg.GRPCHealthPort != "" {
		grpcHealth := observability.NewGRPCHealth(checks, 10*time.Second)
		go func() {
			addr := fmt.Sprintf(":%s", cfg.GRPCHealthPort)
			logger.Info().Str("addr", addr).Msg("gRPC health service listening")
			if err := grpcHealth.Serve(ctx, addr); err != nil {
				logger.Error().Err(err).Msg("gRPC health service stopped")
			}
		}()
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           web.NewRouter(handler, routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
