package tts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexiqai/pdftoaudio/internal/apperr"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// RateRange bounds the speaking rate a backend accepts.
type RateRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// LanguageEntry maps a BCP-47 tag to an engine language and its voices.
type LanguageEntry struct {
	Tag          string   `yaml:"tag"`
	Code         string   `yaml:"code"`
	DefaultVoice string   `yaml:"default_voice"`
	Voices       []string `yaml:"voices"`
}

// BackendCatalog lists what one backend can speak.
type BackendCatalog struct {
	Rate      RateRange       `yaml:"rate"`
	Languages []LanguageEntry `yaml:"languages"`
}

// Catalog is the voice catalogue for every backend.
type Catalog struct {
	Backends map[string]BackendCatalog `yaml:"backends"`
}

// LoadCatalog reads the catalogue at path, or the embedded default when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read voice catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalogue.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse voice catalog: %w", err)
	}
	if len(c.Backends) == 0 {
		return nil, fmt.Errorf("voice catalog defines no backends")
	}

	for name, b := range c.Backends {
		if b.Rate.Min <= 0 || b.Rate.Max < b.Rate.Min {
			return nil, fmt.Errorf("voice catalog: backend %s has invalid rate range [%g, %g]", name, b.Rate.Min, b.Rate.Max)
		}
		if len(b.Languages) == 0 {
			return nil, fmt.Errorf("voice catalog: backend %s has no languages", name)
		}
		for _, l := range b.Languages {
			if l.Tag == "" || l.Code == "" || l.DefaultVoice == "" {
				return nil, fmt.Errorf("voice catalog: backend %s has an incomplete language entry %q", name, l.Tag)
			}
			if !containsFold(l.Voices, l.DefaultVoice) {
				return nil, fmt.Errorf("voice catalog: backend %s language %s default voice %s is not listed", name, l.Tag, l.DefaultVoice)
			}
		}
	}
	return &c, nil
}

// Resolve turns Options into a concrete Voice for backend. An empty voice
// picks the language default and a zero rate means 1.0. Unknown languages,
// unknown voices and out-of-range rates are validation errors.
func (c *Catalog) Resolve(backend string, opts Options) (Voice, error) {
	b, ok := c.Backends[backend]
	if !ok {
		return Voice{}, fmt.Errorf("voice catalog has no entry for backend %s", backend)
	}

	lang, ok := b.language(opts.Language)
	if !ok {
		return Voice{}, apperr.NewValidationError("language",
			fmt.Sprintf("Language %q is not supported by the %s backend.", opts.Language, backend))
	}

	voice := lang.DefaultVoice
	if opts.VoiceName != "" {
		v, ok := findFold(lang.Voices, opts.VoiceName)
		if !ok {
			return Voice{}, apperr.NewValidationError("voice",
				fmt.Sprintf("Voice %q is not available for %s.", opts.VoiceName, lang.Tag))
		}
		voice = v
	}

	rate := opts.SpeakingRate
	if rate == 0 {
		rate = 1.0
	}
	if rate < b.Rate.Min || rate > b.Rate.Max {
		return Voice{}, apperr.NewValidationError("speaking_rate",
			fmt.Sprintf("Speaking rate %g is outside the supported range %g to %g.", rate, b.Rate.Min, b.Rate.Max))
	}

	return Voice{
		Language: lang.Tag,
		Code:     lang.Code,
		Name:     voice,
		Rate:     rate,
	}, nil
}

// language matches a tag case-insensitively. A bare primary subtag such as
// "fr" matches the first entry for that language.
func (b BackendCatalog) language(tag string) (LanguageEntry, bool) {
	for _, l := range b.Languages {
		if strings.EqualFold(l.Tag, tag) {
			return l, true
		}
	}
	if tag == "" || strings.ContainsAny(tag, "-_") {
		return LanguageEntry{}, false
	}
	for _, l := range b.Languages {
		primary, _, _ := strings.Cut(l.Tag, "-")
		if strings.EqualFold(primary, tag) {
			return l, true
		}
	}
	return LanguageEntry{}, false
}

func findFold(list []string, s string) (string, bool) {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}

func containsFold(list []string, s string) bool {
	_, ok := findFold(list, s)
	return ok
}

// Languages lists the tags backend accepts, in catalogue order.
func (c *Catalog) Languages(backend string) []string {
	b := c.Backends[backend]
	tags := make([]string, 0, len(b.Languages))
	for _, l := range b.Languages {
		tags = append(tags, l.Tag)
	}
	return tags
}

// Rates returns the speaking-rate range backend accepts.
func (c *Catalog) Rates(backend string) (RateRange, bool) {
	b, ok := c.Backends[backend]
	return b.Rate, ok
}
