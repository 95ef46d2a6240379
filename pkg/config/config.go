// Package config holds the generation settings shared by the CLI and the
// engine: defaults, an optional YAML file, and validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full set of generation settings.
type Config struct {
	Target  string `yaml:"target"`
	Package string `yaml:"package"`
	Output  string `yaml:"output"`
	Threads int    `yaml:"threads"`
	Flatten bool   `yaml:"flatten"`
	Log     Log    `yaml:"log"`
}

// Default returns the settings used when neither a file nor a flag
// overrides them.
func Default() Config {
	return Config{
		Target:  "stream",
		Package: "main",
		Output:  "gen",
		Threads: 1,
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over Default. Unknown keys are rejected so that a
// misspelt setting does not silently fall back to its default. An empty
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
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

// New validates cfg and returns a copy of it.
func New(cfg Config) (*Config, error) {
	var problems []string
	if cfg.Target == "" {
		problems = append(problems, "target is required")
	}
	if cfg.Output == "" {
		problems = append(problems, "output directory is required")
	}
	if !token.IsIdentifier(cfg.Package) {
		problems = append(problems, fmt.Sprintf("package %q is not a valid Go package name", cfg.Package))
	}
	if cfg.Threads < 1 {
		problems = append(problems, fmt.Sprintf("threads must be at least 1, got %d", cfg.Threads))
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if err := checkFormat(cfg.Log.Format); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return &cfg, nil
}
