package tts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
	"github.com/lexiqai/pdftoaudio/internal/config"
)

func TestLoadCatalog_EmbeddedCoversEveryBackend(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	for _, backend := range []string{
		config.BackendGTTS,
		config.BackendEspeak,
		config.BackendGoogle,
		config.BackendDeepgram,
		config.BackendCartesia,
	} {
		v, err := c.Resolve(backend, Options{Language: "en-US"})
		require.NoError(t, err, backend)
		assert.NotEmpty(t, v.Name, backend)
		assert.Equal(t, 1.0, v.Rate, backend)
	}
}

func TestResolve(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		backend string
		opts    Options
		want    Voice
	}{
		{
			name:    "gtts default voice",
			backend: "gtts",
			opts:    Options{Language: "en-US"},
			want:    Voice{Language: "en-US", Code: "en", Name: "com", Rate: 1},
		},
		{
			name:    "gtts regional accent",
			backend: "gtts",
			opts:    Options{Language: "en-gb"},
			want:    Voice{Language: "en-GB", Code: "en", Name: "co.uk", Rate: 1},
		},
		{
			name:    "primary subtag",
			backend: "google",
			opts:    Options{Language: "fr"},
			want:    Voice{Language: "fr-FR", Code: "fr-FR", Name: "fr-FR-Standard-A", Rate: 1},
		},
		{
			name:    "explicit voice and rate",
			backend: "google",
			opts:    Options{Language: "en-US", VoiceName: "en-us-wavenet-d", SpeakingRate: 1.5},
			want:    Voice{Language: "en-US", Code: "en-US", Name: "en-US-Wavenet-D", Rate: 1.5},
		},
		{
			name:    "espeak slow",
			backend: "espeak",
			opts:    Options{Language: "en-US", SpeakingRate: 0.5},
			want:    Voice{Language: "en-US", Code: "en-us", Name: "en-us", Rate: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Resolve(tt.backend, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_ValidationErrors(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		backend string
		opts    Options
		field   string
	}{
		{"unknown language", "gtts", Options{Language: "xx-YY"}, "language"},
		{"empty language", "gtts", Options{}, "language"},
		{"voice from another language", "google", Options{Language: "en-US", VoiceName: "fr-FR-Standard-A"}, "voice"},
		{"rate too fast for gtts", "gtts", Options{Language: "en-US", SpeakingRate: 1.2}, "speaking_rate"},
		{"rate too slow for cartesia", "cartesia", Options{Language: "en-US", SpeakingRate: 0.3}, "speaking_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Resolve(tt.backend, tt.opts)
			var valErr *apperr.ValidationError
			require.True(t, errors.As(err, &valErr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, valErr.Field)
			assert.Equal(t, 400, valErr.StatusCode())
		})
	}
}

func TestResolve_UnknownBackend(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	_, err = c.Resolve("polly", Options{Language: "en-US"})
	require.Error(t, err)
	assert.False(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestLoadCatalog_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.yaml")
	yaml := `
backends:
  gtts:
    rate: {min: 1, max: 1}
    languages:
      - tag: nl-NL
        code: nl
        default_voice: nl
        voices: [nl]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	v, err := c.Resolve("gtts", Options{Language: "nl-NL"})
	require.NoError(t, err)
	assert.Equal(t, "nl", v.Code)

	_, err = c.Resolve("gtts", Options{Language: "en-US"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":          "backends: [",
		"no backends":       "backends: {}",
		"bad rate":          "backends:\n  gtts:\n    rate: {min: 2, max: 1}\n    languages:\n      - {tag: en-US, code: en, default_voice: com, voices: [com]}\n",
		"unlisted default":  "backends:\n  gtts:\n    rate: {min: 1, max: 1}\n    languages:\n      - {tag: en-US, code: en, default_voice: uk, voices: [com]}\n",
		"missing languages": "backends:\n  gtts:\n    rate: {min: 1, max: 1}\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalog_Languages(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	langs := c.Languages("deepgram")
	assert.Equal(t, []string{"en-US", "en-GB"}, langs)
	assert.Empty(t, c.Languages("unknown"))
}

func TestCatalog_Rates(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	r, ok := c.Rates("google")
	require.True(t, ok)
	assert.Equal(t, RateRange{Min: 0.25, Max: 4.0}, r)

	r, ok = c.Rates("gtts")
	require.True(t, ok)
	assert.Equal(t, RateRange{Min: 1, Max: 1}, r)

	_, ok = c.Rates("unknown")
	assert.False(t, ok)
}
