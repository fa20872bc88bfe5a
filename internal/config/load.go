package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/coregx/markspan/detect"
	"github.com/coregx/markspan/template"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("rules", cfg.Rules)
	v.SetDefault("detectors", cfg.Detectors)
	v.SetDefault("tokens.table", cfg.Tokens.Table)
	v.SetDefault("tokens.attributes", cfg.Tokens.Attributes)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.base", cfg.Output.Base)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	cfg = Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if configLoaded {
		if err := overlayAttributes(path, &cfg); err != nil {
			return Config{}, err
		}
	} else {
		cfg.ConfigVersion = CurrentConfigVersion
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileAttributes holds the attribute maps of a config file. viper folds keys
// to lower case and splits them on dots, which would rewrite attribute names,
// so these maps are decoded from the file with yaml directly.
type fileAttributes struct {
	Rules []struct {
		Attributes map[string]any `yaml:"attributes"`
	} `yaml:"rules"`
	Detectors []struct {
		Attributes map[string]any `yaml:"attributes"`
	} `yaml:"detectors"`
	Tokens struct {
		Attributes map[string]any `yaml:"attributes"`
	} `yaml:"tokens"`
	Output struct {
		Base map[string]any `yaml:"base"`
	} `yaml:"output"`
}

func overlayAttributes(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw fileAttributes
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Rules != nil && len(raw.Rules) == len(cfg.Rules) {
		for i, r := range raw.Rules {
			cfg.Rules[i].Attributes = r.Attributes
		}
	}
	if raw.Detectors != nil && len(raw.Detectors) == len(cfg.Detectors) {
		for i, d := range raw.Detectors {
			cfg.Detectors[i].Attributes = d.Attributes
		}
	}
	if raw.Tokens.Attributes != nil {
		cfg.Tokens.Attributes = raw.Tokens.Attributes
	}
	if raw.Output.Base != nil {
		cfg.Output.Base = raw.Output.Base
	}
	return nil
}

// Validate checks templates, detector names, tokens and the output format.
func Validate(cfg Config) error {
	for i, r := range cfg.Rules {
		if _, err := template.Compile(r.Template); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	for i, d := range cfg.Detectors {
		if _, ok := detect.Builtin(d.Name); !ok {
			return fmt.Errorf("detectors[%d]: unknown detector %q; expected one of %s",
				i, d.Name, strings.Join(detect.BuiltinNames(), ", "))
		}
	}
	for i, t := range cfg.Tokens.Table {
		if t.Token == "" {
			return fmt.Errorf("tokens.table[%d]: %w", i, detect.ErrEmptyToken)
		}
	}
	switch cfg.Output.Format {
	case FormatAuto, FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unsupported output.format %q", cfg.Output.Format)
	}
	return nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
