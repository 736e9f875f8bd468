package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/observability"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeError maps err onto a status and writes it as the form page for
// browsers and as JSON otherwise. Causes are logged, never returned.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	c := apperr.Classify(err)
	status := c.StatusCode()

	logger := observability.FromContext(r.Context())
	var event *zerolog.Event
	switch c.Kind() {
	case apperr.KindInternal, apperr.KindSynthesis:
		event = logger.Error()
	default:
		event = logger.Warn()
	}
	event.Err(err).
		Str("kind", string(c.Kind())).
		Int("status", status).
		Msg("Request failed")

	if wantsHTML(r) {
		h.renderForm(w, r, status, c.PublicMessage())
		return
	}

	detail := ErrorDetail{
		Code:    status,
		Type:    string(c.Kind()),
		Message: c.PublicMessage(),
	}
	if v, ok := c.(*apperr.ValidationError); ok {
		detail.Field = v.Field
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: detail})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
