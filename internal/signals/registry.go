// Package signals ingests external business data (public reviews, menu
// documents) into the signal records the radar detector feeds on.
package signals

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all signal sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching behavior for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
	AcceptLanguage string  `yaml:"accept_language,omitempty"` // e.g. "es-PE,es;q=0.9"
}

// SelectorConfig maps a review listing page onto CSS selectors.
type SelectorConfig struct {
	Container string `yaml:"container"` // wrapper for one review
	Author    string `yaml:"author,omitempty"`
	Text      string `yaml:"text"`
	Rating    string `yaml:"rating,omitempty"`
	Date      string `yaml:"date,omitempty"`
}

// SourceConfig defines one signal source.
type SourceConfig struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"` // "reviews", "menu"
	BaseURL   string         `yaml:"base_url,omitempty"`
	Seeds     []string       `yaml:"seed_urls,omitempty"`
	Fetch     FetchConfig    `yaml:"fetch,omitempty"`
	Selectors SelectorConfig `yaml:"selectors,omitempty"`
	MaxPages  int            `yaml:"max_pages,omitempty"`
}

// LoadRegistry reads the embedded source registry.
func LoadRegistry() (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded sources: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse sources.yaml: %w", err)
	}
	return &reg, nil
}

// FindSource returns the source with the given id.
func (r *Registry) FindSource(id string) (SourceConfig, bool) {
	for _, src := range r.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return SourceConfig{}, false
}
