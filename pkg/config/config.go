// Package config loads engine settings from an HCL file and builds the
// logger used throughout an evaluation session.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Defaults applied to settings the file leaves out.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultKernel      = "sdfx"
	DefaultMeshCells   = 200
	DefaultEvalTimeout = 5 * time.Second
)

// Config holds the settings for one engine session.
//
// Example file:
//
//	log_level    = "debug"
//	log_format   = "json"
//	kernel       = "sdfx"
//	mesh_cells   = 64
//	eval_timeout = "2s"
type Config struct {
	LogLevel    string `hcl:"log_level,optional"`
	LogFormat   string `hcl:"log_format,optional"`
	Kernel      string `hcl:"kernel,optional"`
	MeshCells   int    `hcl:"mesh_cells,optional"`
	EvalTimeout string `hcl:"eval_timeout,optional"`
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates an HCL config file.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(path, src)
}

// Parse decodes HCL source. filename is used for diagnostics and must end
// in .hcl.
func Parse(filename string, src []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, src, nil, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", filename, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Kernel == "" {
		c.Kernel = DefaultKernel
	}
	if c.MeshCells == 0 {
		c.MeshCells = DefaultMeshCells
	}
	if c.EvalTimeout == "" {
		c.EvalTimeout = DefaultEvalTimeout.String()
	}
}

// Validate rejects values the engine does not understand.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	switch c.Kernel {
	case "sdfx", "manifold":
	default:
		return fmt.Errorf("config: unknown kernel %q", c.Kernel)
	}
	if c.MeshCells < 0 {
		return fmt.Errorf("config: mesh_cells must be positive, got %d", c.MeshCells)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout returns the parsed script evaluation timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.EvalTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: eval_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: eval_timeout must be positive, got %s", d)
	}
	return d, nil
}

// NewLogger builds a slog.Logger from the configured level and format. It
// does not replace the global logger.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
