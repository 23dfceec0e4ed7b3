package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// FontsConfig names the font files used for rendering. Regular must be
	// set before conversion, missing styles fall back to it. Presence of the
	// files is checked when they are loaded, not here, so that dumpconfig
	// works on a machine without fonts installed.
	FontsConfig struct {
		Regular    string `yaml:"regular,omitempty" sanitize:"path_clean"`
		Bold       string `yaml:"bold,omitempty" sanitize:"path_clean"`
		Italic     string `yaml:"italic,omitempty" sanitize:"path_clean"`
		BoldItalic string `yaml:"bold_italic,omitempty" sanitize:"path_clean"`
	}

	ScreenConfig struct {
		Width   int `yaml:"width" validate:"min=100,max=4096"`
		Height  int `yaml:"height" validate:"min=100,max=4096"`
		MarginX int `yaml:"margin_x" validate:"min=0,max=200"`
		MarginY int `yaml:"margin_y" validate:"min=0,max=200"`
	}

	DocumentConfig struct {
		Screen                ScreenConfig `yaml:"screen"`
		FontSizes             []int        `yaml:"font_sizes" validate:"min=1,dive,min=6,max=72"`
		Fonts                 FontsConfig  `yaml:"fonts"`
		OutputNameTemplate    string       `yaml:"output_name_template"`
		FileNameTransliterate bool         `yaml:"file_name_transliterate"`
		MaxSpineItems         int          `yaml:"max_spine_items" validate:"min=1"`
	}

	// LimitsConfig bounds how much data the reader side is willing to buffer.
	LimitsConfig struct {
		MaxBookBytes int64 `yaml:"max_book_bytes" validate:"min=65536"`
		MaxPageBytes int   `yaml:"max_page_bytes" validate:"min=1024"`
	}

	Config struct {
		Version  int            `yaml:"version" validate:"eq=1"`
		Document DocumentConfig `yaml:"document"`
		Limits   LimitsConfig   `yaml:"limits"`
		Logging  LoggingConfig  `yaml:"logging"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
