// Package config loads tsreflect.config.{json,yaml,yml}.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"gopkg.in/yaml.v3"
)

// FileNames are the config file names Discover looks for, in order.
var FileNames = []string{
	"tsreflect.config.json",
	"tsreflect.config.yaml",
	"tsreflect.config.yml",
}

// Output modes.
const (
	ModeEmit   = "emit"
	ModeSource = "source"
	ModeNone   = "none"
)

// Config represents the tsreflect configuration.
type Config struct {
	// Marker is the callee name of marker calls.
	Marker string `json:"marker" yaml:"marker" validate:"required"`
	// SentinelImport marks import specifiers to rename to CanonicalImport.
	SentinelImport  string `json:"sentinelImport" yaml:"sentinelImport" validate:"required"`
	CanonicalImport string `json:"canonicalImport" yaml:"canonicalImport" validate:"required"`

	// Include and Exclude select source files, relative to the tsconfig
	// directory.
	Include []string `json:"include" yaml:"include" validate:"min=1,dive,required,glob"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty" validate:"dive,glob"`

	FlagPolicy string `json:"flagPolicy" yaml:"flagPolicy" validate:"oneof=intersect exact"`
	MaxDepth   int    `json:"maxDepth" yaml:"maxDepth" validate:"gte=0"`

	// Strict promotes warnings to errors.
	Strict bool `json:"strict,omitzero" yaml:"strict,omitempty"`

	Output OutputConfig `json:"output" yaml:"output"`
}

// OutputConfig selects what a build writes.
type OutputConfig struct {
	Mode string `json:"mode" yaml:"mode" validate:"oneof=emit source none"`
	// Dir receives rewritten sources in source mode.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty" validate:"required_if=Mode source"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Marker:          "$schema",
		SentinelImport:  "$validate",
		CanonicalImport: "validate",
		Include:         []string{"**/*.ts", "**/*.tsx"},
		FlagPolicy:      "intersect",
		Output: OutputConfig{
			Mode: ModeEmit,
		},
	}
}

// Discover returns the first config file found in dir, or "" when there is
// none.
func Discover(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return path, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("checking %q: %w", path, err)
		}
	}
	return "", nil
}

// Load reads and parses a config file. The format follows the extension:
// .yaml and .yml are YAML, everything else is JSON. Unknown fields are
// rejected in both formats.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result. ext picks
// the format.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg, json.RejectUnknownMembers(true)); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}

	cfg.FlagPolicy = strings.ToLower(cfg.FlagPolicy)
	cfg.Output.Mode = strings.ToLower(cfg.Output.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Hash returns a stable digest of every setting that affects output.
func (c *Config) Hash() (string, error) {
	data, err := json.Marshal(c, json.Deterministic(true))
	if err != nil {
		return "", fmt.Errorf("hashing config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
