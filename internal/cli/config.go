package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Flags given on the
// command line take precedence.
type Config struct {
	// DB is the SQLite database path used when --db is not given.
	DB string `yaml:"db"`

	// AuthToken is required by the store and sent with every storage call.
	AuthToken string `yaml:"auth_token"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// LoadConfig reads a YAML config file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// setupLogging installs the default slog handler on stderr.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
