// control/config.go
// Author: momentics <momentics@gmail.com>
//
// File-based configuration for the event loop group, the connection pool and
// logging. TOML and YAML are accepted; keys absent from the file keep their
// defaults.

package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-ctx/baggage"
)

// Config is the runtime configuration.
type Config struct {
	Address    string            `toml:"address" yaml:"address"`
	EventLoops int               `toml:"event_loops" yaml:"event_loops"`
	PinThreads bool              `toml:"pin_threads" yaml:"pin_threads"`
	BatchSize  int               `toml:"batch_size" yaml:"batch_size"`
	LogLevel   string            `toml:"log_level" yaml:"log_level"`
	LogFormat  string            `toml:"log_format" yaml:"log_format"` // console or json
	Baggage    map[string]string `toml:"baggage" yaml:"baggage"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Address:    "localhost:5432",
		EventLoops: 2,
		BatchSize:  64,
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// LoadConfig reads path on top of DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config load failed (%s): unsupported extension %q", path, ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Address) == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if c.EventLoops < 0 {
		errs = append(errs, fmt.Errorf("event_loops must be >= 0, got %d", c.EventLoops))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size must be >= 0, got %d", c.BatchSize))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// TraceBaggage converts the configured baggage entries.
func (c Config) TraceBaggage() baggage.Baggage {
	b := baggage.New()
	for k, v := range c.Baggage {
		b = b.With(k, v)
	}
	return b
}
