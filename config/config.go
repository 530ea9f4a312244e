// Package config loads the YAML configuration of the serve and mcp commands.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/linkage/scissor"
)

// Environment overrides, applied after the file.
const (
	EnvAddr     = "LINKAGE_ADDR"
	EnvLogLevel = "LINKAGE_LOG_LEVEL"
)

// Config is the server configuration.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	LogLevel        string        `mapstructure:"log_level"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	Metrics         bool          `mapstructure:"metrics"`
	Solver          SolverConfig  `mapstructure:"solver"`
	MCP             MCPConfig     `mapstructure:"mcp"`
}

// SolverConfig holds the defaults applied to every solve request.
type SolverConfig struct {
	Mode          string  `mapstructure:"mode"`
	MinAngle      string  `mapstructure:"min_angle"` // "0", "5deg", "0.1rad"
	Tolerance     float64 `mapstructure:"tolerance"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// MCPConfig configures the MCP server transports.
type MCPConfig struct {
	Transport string `mapstructure:"transport"` // stdio | sse
	Addr      string `mapstructure:"addr"`
	BaseURL   string `mapstructure:"base_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		ReadTimeout:     10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxBodyBytes:    1 << 20,
		Metrics:         true,
		Solver: SolverConfig{
			Mode:          scissor.ModeUniform.String(),
			Tolerance:     scissor.DefaultTolerance,
			MaxIterations: scissor.DefaultMaxIterations,
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Addr:      ":8081",
		},
	}
}

// Load reads path (empty means defaults only) and applies environment overrides.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if lookup != nil {
		if v, ok := lookup(EnvAddr); ok && v != "" {
			cfg.Addr = v
		}
		if v, ok := lookup(EnvLogLevel); ok && v != "" {
			cfg.LogLevel = v
		}
	}
	if _, err := cfg.SolveOptions(); err != nil {
		return cfg, err
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decode goes through a generic map so unknown keys are reported and
// durations may be written as "5s".
func decode(data []byte, cfg *Config) error {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// SolveOptions converts the solver section.
func (c Config) SolveOptions() (scissor.SolveOptions, error) {
	opts := scissor.DefaultSolveOptions()
	mode, err := scissor.ParseAngleMode(c.Solver.Mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	if s := strings.TrimSpace(c.Solver.MinAngle); s != "" {
		a, err := scissor.ParseAngle(s)
		if err != nil {
			return opts, fmt.Errorf("solver.min_angle: %w", err)
		}
		if a < 0 || a >= math.Pi {
			return opts, fmt.Errorf("solver.min_angle out of range: %g", a)
		}
		opts.MinAngle = a
	}
	if c.Solver.Tolerance > 0 {
		opts.Tolerance = c.Solver.Tolerance
	}
	if c.Solver.MaxIterations > 0 {
		opts.MaxIterations = c.Solver.MaxIterations
	}
	return opts, nil
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
