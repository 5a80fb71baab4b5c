// Package config loads and validates worker configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	ErrRankOutOfRange = errors.New("config: rank out of range for peer list")
	ErrTooFewWorkers  = errors.New("config: at least two workers required")

	// validate is a singleton validator instance
	validate *validator.Validate
)

func init() {
	validate = validator.New()
}

// Graph models supported by the synthesizer.
const (
	ModelWeak  = "weak"
	ModelDense = "dense"
)

// S3Sink configures the optional result upload.
type S3Sink struct {
	Bucket string `yaml:"bucket" validate:"required"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Config is the full worker configuration.
type Config struct {
	// RunID ties log lines and result rows from one run together. A fresh
	// UUID is generated when the file leaves it empty.
	RunID string `yaml:"run_id"`

	Rank  int      `yaml:"rank" validate:"min=0"`
	Peers []string `yaml:"peers" validate:"required,min=1,dive,required"`

	// BaseVertices is the per-worker vertex count; the graph holds
	// BaseVertices * len(Peers) vertices in total (weak scaling).
	BaseVertices int `yaml:"base_vertices" validate:"min=1"`

	// Target is the vertex the traversal searches for. Negative means
	// derive the default of 84% of the total vertex count.
	Target int64 `yaml:"target"`

	Model  string `yaml:"model" validate:"oneof=weak dense"`
	Degree int    `yaml:"degree" validate:"min=0"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`

	S3 *S3Sink `yaml:"s3,omitempty"`
}

// Default returns a config with the standard knobs filled in.
func Default() *Config {
	return &Config{
		BaseVertices: 10000,
		Target:       -1,
		Model:        ModelWeak,
		Degree:       3,
		LogLevel:     "INFO",
	}
}

// Load reads, defaults and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize fills derived fields and validates the result.
func (c *Config) Finalize() error {
	if c.RunID == "" {
		c.RunID = uuid.New().String()
	}
	if c.Target < 0 {
		c.Target = int64(c.TotalVertices()) * 84 / 100
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Rank >= len(c.Peers) {
		return fmt.Errorf("%w: rank %d, %d peers", ErrRankOutOfRange, c.Rank, len(c.Peers))
	}
	if c.Target >= int64(c.TotalVertices()) {
		return fmt.Errorf("config: target %d outside vertex range [0,%d)", c.Target, c.TotalVertices())
	}
	return nil
}

// TotalVertices is the global vertex count across all workers.
func (c *Config) TotalVertices() int {
	return c.BaseVertices * len(c.Peers)
}
