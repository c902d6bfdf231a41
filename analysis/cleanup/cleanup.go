// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cleanup post-processes decompiler output before it is
// returned to a viewer: an optional external formatter (typically
// clang-format) followed by ordered regular-expression rewrites that
// turn decompiler idioms into the project's source style.
//
// Rules can be given directly or read from a CSV file with the header
// source,replacement,dotall. Patterns always match in multi-line
// mode; dotall additionally lets "." match newlines.
package cleanup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Rule is one rewrite. Replacement uses Go regexp expansion syntax
// ($1, ${name}).
type Rule struct {
	Pattern     string
	Replacement string
	DotAll      bool
}

// Options configures a [Pipeline].
type Options struct {
	// FormatCommand is run with the text on stdin; its stdout
	// replaces the text. Empty disables formatting.
	FormatCommand []string

	// FormatTimeout bounds one formatter run. Zero means 10s.
	FormatTimeout time.Duration

	Rules []Rule

	Logger *slog.Logger
}

// Pipeline applies the formatter and rules. It is safe for concurrent
// use. A nil *Pipeline returns its input unchanged.
type Pipeline struct {
	formatCommand []string
	formatTimeout time.Duration
	rules         []compiledRule
	logger        *slog.Logger
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// New compiles the rules in options.
func New(options Options) (*Pipeline, error) {
	pipeline := &Pipeline{
		formatCommand: options.FormatCommand,
		formatTimeout: options.FormatTimeout,
		logger:        options.Logger,
	}
	if pipeline.formatTimeout <= 0 {
		pipeline.formatTimeout = 10 * time.Second
	}
	if pipeline.logger == nil {
		pipeline.logger = slog.Default()
	}

	for i, rule := range options.Rules {
		flags := "(?m)"
		if rule.DotAll {
			flags = "(?ms)"
		}
		pattern, err := regexp.Compile(flags + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("cleanup rule %d (%q): %w", i+1, rule.Pattern, err)
		}
		pipeline.rules = append(pipeline.rules, compiledRule{pattern: pattern, replacement: rule.Replacement})
	}
	return pipeline, nil
}

// Len returns the number of rewrite rules.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}

// Apply formats text and runs every rule over it in order. A
// formatter failure is logged and the unformatted text is used.
func (p *Pipeline) Apply(ctx context.Context, text string) string {
	if p == nil {
		return text
	}

	if len(p.formatCommand) > 0 {
		formatted, err := p.format(ctx, text)
		if err != nil {
			p.logger.Warn("formatter failed, keeping unformatted output",
				"command", strings.Join(p.formatCommand, " "),
				"error", err,
			)
		} else {
			text = formatted
		}
	}

	for _, rule := range p.rules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

func (p *Pipeline) format(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.formatTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, p.formatCommand[0], p.formatCommand[1:]...)
	command.Stdin = strings.NewReader(text)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: timed out after %s", p.formatCommand[0], p.formatTimeout)
		}
		return "", fmt.Errorf("%s: %w (stderr: %s)", p.formatCommand[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
