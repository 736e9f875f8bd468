package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName labels logs and health payloads.
const ServiceName = "pdftoaudio"

var (
	// Pipeline metrics
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdftoaudio_conversions_total",
		Help: "Total number of PDF to audio conversions by outcome",
	}, []string{"outcome"}) // outcome: success or an apperr kind

	conversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdftoaudio_conversion_duration_seconds",
		Help:    "End-to-end conversion latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	// Extraction metrics
	extractionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdftoaudio_extraction_latency_seconds",
		Help:    "PDF text extraction latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	})

	extractedPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdftoaudio_extracted_pages",
		Help:    "Number of pages per uploaded PDF",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdftoaudio_synthesis_requests_total",
		Help: "Total number of synthesis backend calls",
	}, []string{"backend", "status"})

	synthesisLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdftoaudio_synthesis_latency_seconds",
		Help:    "Synthesis backend latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	}, []string{"backend"})

	synthesisChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdftoaudio_synthesis_input_chars",
		Help:    "Characters of text submitted for synthesis",
		Buckets: prometheus.ExponentialBuckets(100, 2.5, 8),
	})

	// Audio metrics
	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdftoaudio_audio_bytes_total",
		Help: "Total MP3 bytes returned to callers",
	})

	audioSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdftoaudio_audio_duration_seconds",
		Help:    "Duration of generated audio in seconds",
		Buckets: []float64{5, 15, 30, 60, 300, 900, 1800, 3600},
	})

	// Cache metrics
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdftoaudio_audio_cache_lookups_total",
		Help: "Audio cache lookups by result",
	}, []string{"result"}) // hit, miss, error

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pdftoaudio_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdftoaudio_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// HTTP metrics
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdftoaudio_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// RecordConversion records the outcome of one pipeline run.
func RecordConversion(outcome string, elapsed time.Duration) {
	conversionsTotal.WithLabelValues(outcome).Inc()
	conversionDuration.Observe(elapsed.Seconds())
}

// RecordExtraction records extraction latency and page count.
func RecordExtraction(elapsed time.Duration, pages int) {
	extractionLatency.Observe(elapsed.Seconds())
	extractedPages.Observe(float64(pages))
}

// RecordSynthesis records one backend call.
func RecordSynthesis(backend string, elapsed time.Duration, chars int, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(backend, status).Inc()
	synthesisLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
	synthesisChars.Observe(float64(chars))
}

// RecordAudio records an emitted artifact.
func RecordAudio(bytes int, duration time.Duration) {
	audioBytes.Add(float64(bytes))
	audioSeconds.Observe(duration.Seconds())
}

// RecordCacheLookup records an audio cache lookup; result is hit, miss or error.
func RecordCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
