package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// ConversionConfig holds defaults for every conversion run.
	ConversionConfig struct {
		Log       bool `yaml:"log"`
		Overwrite bool `yaml:"overwrite"`
	}

	// TaskConfig is a group of sources merged into a single destination.
	TaskConfig struct {
		Name        string   `yaml:"name" validate:"required"`
		Sources     []string `yaml:"src" validate:"required,min=1,dive,required"`
		Destination string   `yaml:"dest" validate:"required"`
		Log         *bool    `yaml:"log,omitempty"`
	}

	Config struct {
		Version    int              `yaml:"version" validate:"eq=1"`
		Conversion ConversionConfig `yaml:"conversion"`
		Tasks      []TaskConfig     `yaml:"tasks" validate:"dive"`
		Logging    LoggingConfig    `yaml:"logging"`
		Reporting  ReporterConfig   `yaml:"reporting"`
	}
)

// LogResults tells if task results (root size, number of conversions)
// should be reported. Task setting overrides global one.
func (t TaskConfig) LogResults(defaults ConversionConfig) bool {
	if t.Log != nil {
		return *t.Log
	}
	return defaults.Log
}

// FindTasks returns configured tasks with requested names in configuration
// order, all tasks if no names were given. Unknown names are returned
// separately.
func (c *Config) FindTasks(names ...string) ([]TaskConfig, []string) {
	if len(names) == 0 {
		return c.Tasks, nil
	}
	var (
		found   []TaskConfig
		unknown []string
	)
	for _, name := range names {
		if !slices.ContainsFunc(c.Tasks, func(t TaskConfig) bool { return t.Name == name }) {
			unknown = append(unknown, name)
		}
	}
	for _, t := range c.Tasks {
		if slices.Contains(names, t.Name) {
			found = append(found, t)
		}
	}
	return found, unknown
}

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
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
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
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
