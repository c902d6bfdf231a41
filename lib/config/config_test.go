// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cexbridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Server.Address() != "127.0.0.1:10242" {
		t.Errorf("expected address 127.0.0.1:10242, got %s", cfg.Server.Address())
	}
	if cfg.Server.ShutdownDelay != time.Second {
		t.Errorf("expected shutdown_delay=1s, got %v", cfg.Server.ShutdownDelay)
	}
	if cfg.Analysis.DecompileTimeout != 5*time.Second {
		t.Errorf("expected decompile_timeout=5s, got %v", cfg.Analysis.DecompileTimeout)
	}
	if cfg.Server.StatusCodes != StatusCompat {
		t.Errorf("expected status_codes=compat, got %s", cfg.Server.StatusCodes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_WithoutConfigUsesDefaults(t *testing.T) {
	t.Setenv("CEXBRIDGE_CONFIG", "")
	t.Setenv("CEXBRIDGE_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}
}

func TestLoad_WithConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 11000
  shutdown_delay: 250ms
  status_codes: strict
analysis:
  program: /images/tmc.jsonc
  decompile_timeout: 2s
cleanup:
  format_command: [clang-format, --style=file]
  rules:
    - pattern: '\(undefined4\)'
      replacement: ''
log:
  level: debug
`)
	t.Setenv("CEXBRIDGE_CONFIG", path)
	t.Setenv("CEXBRIDGE_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 11000 {
		t.Errorf("expected port 11000, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownDelay != 250*time.Millisecond {
		t.Errorf("expected shutdown_delay=250ms, got %v", cfg.Server.ShutdownDelay)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host should keep its default, got %q", cfg.Server.Host)
	}
	if cfg.Analysis.Program != "/images/tmc.jsonc" {
		t.Errorf("unexpected program %q", cfg.Analysis.Program)
	}
	if len(cfg.Cleanup.FormatCommand) != 2 || cfg.Cleanup.FormatCommand[0] != "clang-format" {
		t.Errorf("unexpected format_command %v", cfg.Cleanup.FormatCommand)
	}
	if len(cfg.Cleanup.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(cfg.Cleanup.Rules))
	}
	level, err := cfg.LogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, %v; want debug", level, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestPortEnvironmentVariableOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 11000\n")
	t.Setenv("CEXBRIDGE_PORT", "12345")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Server.Port != 12345 {
		t.Errorf("expected CEXBRIDGE_PORT to win, got %d", cfg.Server.Port)
	}
}

func TestPortEnvironmentVariableRejectsGarbage(t *testing.T) {
	t.Setenv("CEXBRIDGE_CONFIG", "")
	t.Setenv("CEXBRIDGE_PORT", "ten")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "CEXBRIDGE_PORT") {
		t.Fatalf("expected CEXBRIDGE_PORT error, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CEXBRIDGE_PORT", "")

	t.Run("development section", func(t *testing.T) {
		path := writeConfig(t, `
environment: development
server:
  port: 11000
development:
  server:
    port: 11001
    status_codes: strict
`)
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() failed: %v", err)
		}
		if cfg.Server.Port != 11001 {
			t.Errorf("expected override port 11001, got %d", cfg.Server.Port)
		}
		if cfg.Server.StatusCodes != StatusStrict {
			t.Errorf("expected strict, got %s", cfg.Server.StatusCodes)
		}
	})

	t.Run("production defaults", func(t *testing.T) {
		path := writeConfig(t, "environment: production\n")
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() failed: %v", err)
		}
		if cfg.Log.Level != "warn" {
			t.Errorf("expected production log level warn, got %s", cfg.Log.Level)
		}
	})
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("CEXBRIDGE_PORT", "")
	t.Setenv("HOME", "/home/tester")
	t.Setenv("TMC_ROOT", "")

	path := writeConfig(t, `
analysis:
  program: ${HOME}/images/tmc.cbor.zst
cleanup:
  rules_file: ${TMC_ROOT:-/opt/tmc}/ghidra.csv
  format_command: [clang-format, "--assume-filename=${HOME}/x.c"]
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Analysis.Program != "/home/tester/images/tmc.cbor.zst" {
		t.Errorf("program = %q", cfg.Analysis.Program)
	}
	if cfg.Cleanup.RulesFile != "/opt/tmc/ghidra.csv" {
		t.Errorf("rules_file = %q", cfg.Cleanup.RulesFile)
	}
	if cfg.Cleanup.FormatCommand[1] != "--assume-filename=/home/tester/x.c" {
		t.Errorf("format_command[1] = %q", cfg.Cleanup.FormatCommand[1])
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Environment = "staging"
	cfg.Server.Port = 70000
	cfg.Server.StatusCodes = "loose"
	cfg.Analysis.DecompileTimeout = 0
	cfg.Cleanup.Rules = []RuleConfig{{Pattern: ""}, {Pattern: "("}}
	cfg.Log.Level = "chatty"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"invalid environment",
		"server.port",
		"server.status_codes",
		"analysis.decompile_timeout",
		"cleanup.rules[0]",
		"cleanup.rules[1]",
		"log.level",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
