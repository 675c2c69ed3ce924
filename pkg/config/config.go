package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the default path to the config file.
const DefaultConfigPath = "./config/gmpt.yml"

// Version is the version of the tool, set at build time.
var Version string

// Config top level struct representing the config for the engine and its
// services.
type Config struct {
	Engine     EngineConfiguration `yaml:"Engine"`
	Logger     Logger              `yaml:"Logger"`
	Prometheus BasicService        `yaml:"Prometheus"`
	Pprof      BasicService        `yaml:"Pprof"`
}

// Default returns configuration with all default values set.
func Default() Config {
	return Config{
		Engine: DefaultEngineConfiguration(),
		Logger: Logger{
			LogLevel: "info",
		},
	}
}

// Load attempts to load the config from the given path. Values missing from
// the file are set to the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses YAML config. Unknown fields are an error.
func LoadBytes(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks configuration values for consistency.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("invalid Engine section: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("invalid Logger section: %w", err)
	}
	return nil
}
