// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is a bridge run by hand next to the analysis tool.
	Development Environment = "development"
	// Production is a bridge launched by tooling.
	Production Environment = "production"
)

// Status code modes for server.status_codes.
const (
	// StatusCompat answers every failure with 500, which is what existing
	// viewers expect.
	StatusCompat = "compat"
	// StatusStrict separates client errors (4xx) from engine errors.
	StatusStrict = "strict"
)

// DefaultPort is the control port of the reference deployment.
const DefaultPort = 10242

// Config is the master configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Server configures the HTTP listener and its lifecycle.
	Server ServerConfig `yaml:"server"`

	// Analysis configures the analysis engine the bridge drives.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Cleanup configures post-processing of decompiler output.
	Cleanup CleanupConfig `yaml:"cleanup"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the fields an environment section may override.
type Overrides struct {
	Server *ServerConfig `yaml:"server,omitempty"`
	Log    *LogConfig    `yaml:"log,omitempty"`
}

// ServerConfig configures the control listener.
type ServerConfig struct {
	// Host is the interface to bind. Default: 127.0.0.1
	Host string `yaml:"host"`

	// Port is the control port. Default: 10242. Zero binds an
	// ephemeral port.
	Port int `yaml:"port"`

	// ShutdownDelay is how long after answering /shutdown the server
	// stops. Default: 1s
	ShutdownDelay time.Duration `yaml:"shutdown_delay"`

	// ShutdownGrace bounds how long a stop waits for in-flight
	// requests. Default: 5s
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	// ReadHeaderTimeout bounds request header reads. Default: 5s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// StatusCodes is "compat" (every failure is 500) or "strict".
	// Default: compat
	StatusCodes string `yaml:"status_codes"`
}

// AnalysisConfig configures the analysis engine.
type AnalysisConfig struct {
	// Program is the program image the reference engine loads
	// (.jsonc, .json or .cbor, optionally .zst or .lz4 compressed).
	Program string `yaml:"program"`

	// DecompileTimeout bounds each decompilation. Default: 5s
	DecompileTimeout time.Duration `yaml:"decompile_timeout"`
}

// CleanupConfig configures decompiler output post-processing.
type CleanupConfig struct {
	// FormatCommand, when set, is run with the decompiled text on
	// stdin and its stdout replaces the text, for example
	// ["clang-format", "--style=file"].
	FormatCommand []string `yaml:"format_command"`

	// FormatTimeout bounds FormatCommand. Default: 10s
	FormatTimeout time.Duration `yaml:"format_timeout"`

	// RulesFile is a CSV file of replacement rules with the header
	// source,replacement,dotall. Its rules run after Rules.
	RulesFile string `yaml:"rules_file"`

	// Rules are regular-expression replacements applied in order.
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is one replacement rule.
type RuleConfig struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	// DotAll lets "." match newlines.
	DotAll bool `yaml:"dotall"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`
}

// Default returns the reference deployment configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              DefaultPort,
			ShutdownDelay:     time.Second,
			ShutdownGrace:     5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			StatusCodes:       StatusCompat,
		},
		Analysis: AnalysisConfig{
			DecompileTimeout: 5 * time.Second,
		},
		Cleanup: CleanupConfig{
			FormatTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by CEXBRIDGE_CONFIG,
// or returns the defaults (with CEXBRIDGE_PORT applied) when it is not
// set.
func Load() (*Config, error) {
	configPath := os.Getenv("CEXBRIDGE_CONFIG")
	if configPath == "" {
		cfg := Default()
		if err := cfg.applyEnvironmentVariables(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.applyEnvironmentVariables(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production is launched by tooling that reads status codes,
		// and nobody watches its per-request logs.
		if overrides == nil {
			overrides = &Overrides{
				Log: &LogConfig{Level: "warn"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if server := overrides.Server; server != nil {
		if server.Host != "" {
			c.Server.Host = server.Host
		}
		if server.Port != 0 {
			c.Server.Port = server.Port
		}
		if server.ShutdownDelay != 0 {
			c.Server.ShutdownDelay = server.ShutdownDelay
		}
		if server.ShutdownGrace != 0 {
			c.Server.ShutdownGrace = server.ShutdownGrace
		}
		if server.ReadHeaderTimeout != 0 {
			c.Server.ReadHeaderTimeout = server.ReadHeaderTimeout
		}
		if server.StatusCodes != "" {
			c.Server.StatusCodes = server.StatusCodes
		}
	}

	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}
}

// applyEnvironmentVariables applies CEXBRIDGE_PORT.
func (c *Config) applyEnvironmentVariables() error {
	value := os.Getenv("CEXBRIDGE_PORT")
	if value == "" {
		return nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("CEXBRIDGE_PORT: %q is not a port number", value)
	}
	c.Server.Port = port
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Analysis.Program = expandVars(c.Analysis.Program, vars)
	c.Cleanup.RulesFile = expandVars(c.Cleanup.RulesFile, vars)
	for i, arg := range c.Cleanup.FormatCommand {
		c.Cleanup.FormatCommand[i] = expandVars(arg, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Address returns the host:port the server binds.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Server.Host == "" {
		errs = append(errs, fmt.Errorf("server.host is required"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.ShutdownDelay < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_delay must not be negative"))
	}
	if c.Server.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_grace must not be negative"))
	}
	if c.Server.StatusCodes != StatusCompat && c.Server.StatusCodes != StatusStrict {
		errs = append(errs, fmt.Errorf("server.status_codes must be %q or %q, got %q",
			StatusCompat, StatusStrict, c.Server.StatusCodes))
	}

	if c.Analysis.DecompileTimeout <= 0 {
		errs = append(errs, fmt.Errorf("analysis.decompile_timeout must be positive"))
	}

	if c.Cleanup.FormatTimeout <= 0 && len(c.Cleanup.FormatCommand) > 0 {
		errs = append(errs, fmt.Errorf("cleanup.format_timeout must be positive"))
	}
	for i, rule := range c.Cleanup.Rules {
		if rule.Pattern == "" {
			errs = append(errs, fmt.Errorf("cleanup.rules[%d]: pattern is required", i))
			continue
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("cleanup.rules[%d]: %w", i, err))
		}
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
