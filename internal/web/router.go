// Package web serves the upload form and the conversion endpoint.
package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/lexiqai/pdftoaudio/internal/observability"
)

// RouterOptions holds the routes that live outside the conversion handler.
type RouterOptions struct {
	Checks         observability.HealthChecks
	Metrics        http.Handler // nil disables /metrics
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, accessLogMiddleware, h.recoverMiddleware)

	router.HandleFunc("/", h.ShowForm).Methods(http.MethodGet)
	router.HandleFunc("/", h.Convert).Methods(http.MethodPost)

	router.HandleFunc("/health", observability.HealthCheckHandler()).Methods(http.MethodGet)
	router.HandleFunc("/ready", observability.ReadinessHandler(opts.Checks)).Methods(http.MethodGet)

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			requestIDHeader,
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			durationHeader,
			requestIDHeader,
		},
		MaxAge: 300,
	})

	return c.Handler(router)
}
