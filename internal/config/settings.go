package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/freelink/internal/freelink"
	"github.com/dgallion1/freelink/internal/plugins"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// GlobalOptions are the filter-wide switches.
type GlobalOptions struct {
	// IgnoreUPI drops occurrences with an unknown indicator instead of
	// rendering an error.
	IgnoreUPI          bool `yaml:"ignore_upi" json:"ignore_upi"`
	AnchoredIndicators bool `yaml:"anchored_indicators" json:"anchored_indicators"`
}

// PluginSettings enables one handler and carries its settings.
type PluginSettings struct {
	Plugin   string         `yaml:"plugin" json:"plugin" validate:"required"`
	Enabled  bool           `yaml:"enabled" json:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// FilterSettings is the YAML filter configuration.
type FilterSettings struct {
	Default             string           `yaml:"default" json:"default" validate:"required"`
	GlobalOptions       GlobalOptions    `yaml:"global_options" json:"global_options"`
	ExternalHTTPRequest bool             `yaml:"external_http_request" json:"external_http_request"`
	Plugins             []PluginSettings `yaml:"plugins" json:"plugins" validate:"dive"`
}

var validate = validator.New()

// DefaultFilterSettings enables every given handler with default settings.
func DefaultFilterSettings(ids []string) FilterSettings {
	s := FilterSettings{Default: "nodetitle"}
	for _, id := range ids {
		s.Plugins = append(s.Plugins, PluginSettings{Plugin: id, Enabled: true})
	}
	return s
}

// LoadFilterSettings reads settings from path. An empty path yields the
// defaults for the standard handlers.
func LoadFilterSettings(path string) (FilterSettings, error) {
	if path == "" {
		return DefaultFilterSettings(plugins.NewCatalog().IDs()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FilterSettings{}, fmt.Errorf("read settings: %w", err)
	}
	return ParseFilterSettings(data)
}

// ParseFilterSettings decodes YAML settings. Unknown keys are rejected.
func ParseFilterSettings(data []byte) (FilterSettings, error) {
	var s FilterSettings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return FilterSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return FilterSettings{}, err
	}
	return s, nil
}

// Validate checks required fields and that the default handler is usable.
func (s FilterSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Default == freelink.NoDefault {
		return nil
	}
	for _, p := range s.Plugins {
		if p.Plugin == s.Default {
			if !p.Enabled {
				return fmt.Errorf("invalid settings: default handler %q is disabled", s.Default)
			}
			return nil
		}
	}
	return fmt.Errorf("invalid settings: default handler %q is not configured", s.Default)
}

// Options converts the settings into scan options for a language.
func (s FilterSettings) Options(lang language.Tag) freelink.Options {
	mode := freelink.MatchSubstring
	if s.GlobalOptions.AnchoredIndicators {
		mode = freelink.MatchWhole
	}
	return freelink.Options{
		DefaultHandler:   s.Default,
		IgnoreUnresolved: s.GlobalOptions.IgnoreUPI,
		MatchMode:        mode,
		Language:         lang,
	}
}

// PluginConfigs converts the plugin list for the handler catalog.
func (s FilterSettings) PluginConfigs() []plugins.Config {
	out := make([]plugins.Config, 0, len(s.Plugins))
	for _, p := range s.Plugins {
		out = append(out, plugins.Config{ID: p.Plugin, Enabled: p.Enabled, Settings: freelink.Settings(p.Settings)})
	}
	return out
}

// ParseLanguage parses a language code, falling back when it is empty or
// malformed.
func ParseLanguage(code string, fallback language.Tag) language.Tag {
	if code == "" {
		return fallback
	}
	tag, err := language.Parse(code)
	if err != nil {
		return fallback
	}
	return tag
}
