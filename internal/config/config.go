package config

import (
	"os"
	"path/filepath"
)

// Config is the top-level markspan configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	Rules         []RuleConfig     `mapstructure:"rules" yaml:"rules"`
	Detectors     []DetectorConfig `mapstructure:"detectors" yaml:"detectors"`
	Tokens        TokensConfig     `mapstructure:"tokens" yaml:"tokens"`
	Output        OutputConfig     `mapstructure:"output" yaml:"output"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Output formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RuleConfig registers one delimiter template. Without Replace the
// template's delimiters are stripped; with it every match becomes Replace.
type RuleConfig struct {
	Template   string         `mapstructure:"template" yaml:"template"`
	Recursive  bool           `mapstructure:"recursive" yaml:"recursive"`
	Replace    *string        `mapstructure:"replace" yaml:"replace,omitempty"`
	Attributes map[string]any `mapstructure:"attributes" yaml:"attributes"`
}

// DetectorConfig enables a built-in detector. Attributes are added to every
// match.
type DetectorConfig struct {
	Name       string         `mapstructure:"name" yaml:"name"`
	Attributes map[string]any `mapstructure:"attributes" yaml:"attributes,omitempty"`
}

// TokensConfig configures literal token replacement, run after the
// detectors.
type TokensConfig struct {
	Table      []Token        `mapstructure:"table" yaml:"table"`
	Attributes map[string]any `mapstructure:"attributes" yaml:"attributes,omitempty"`
}

// Token maps a literal token to its replacement.
type Token struct {
	Token   string `mapstructure:"token" yaml:"token"`
	Replace string `mapstructure:"replace" yaml:"replace"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Format string         `mapstructure:"format" yaml:"format"`
	Base   map[string]any `mapstructure:"base" yaml:"base,omitempty"`
}

// DefaultConfig returns the built-in markdown-like rule set.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Rules: []RuleConfig{
			{Template: "**?**", Attributes: map[string]any{"style": "bold"}},
			{Template: "__?__", Attributes: map[string]any{"style": "bold"}},
			{Template: "_?_", Attributes: map[string]any{"style": "italic"}},
			{Template: "`?`", Attributes: map[string]any{"font": "monospace"}},
			{Template: "~~?~~", Attributes: map[string]any{"strike": true}},
		},
		Detectors: []DetectorConfig{
			{Name: "md-image"},
			{Name: "md-link"},
			{Name: "link"},
			{Name: "username"},
			{Name: "unicode"},
		},
		Tokens: TokensConfig{
			Table: []Token{
				{Token: "(c)", Replace: "©"},
				{Token: "(tm)", Replace: "™"},
				{Token: "->", Replace: "→"},
				{Token: "<-", Replace: "←"},
			},
		},
		Output: OutputConfig{
			Format: FormatAuto,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "markspan", "config.yaml"), nil
}
