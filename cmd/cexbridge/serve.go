// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cexbridge/analysis"
	"github.com/bureau-foundation/cexbridge/analysis/cleanup"
	"github.com/bureau-foundation/cexbridge/bridge"
	"github.com/bureau-foundation/cexbridge/cmd/cexbridge/cli"
	"github.com/bureau-foundation/cexbridge/lib/config"
)

type serveFlags struct {
	configPath string
	host       string
	port       int
	program    string
	strict     bool
	verbose    bool
}

func serveCommand(out *output) *cli.Command {
	var flags serveFlags
	return &cli.Command{
		Name:    "serve",
		Summary: "Run the control bridge",
		Description: `Load a program image into the analysis engine and serve the control
endpoints until /shutdown, SIGINT or SIGTERM. SIGHUP restarts the
listener on the same port.

Configuration comes from --config, else $CEXBRIDGE_CONFIG, else the
built-in defaults. Flags override the file.`,
		Usage: "cexbridge serve [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.StringVarP(&flags.configPath, "config", "c", "", "configuration file (default $CEXBRIDGE_CONFIG)")
			flagSet.StringVar(&flags.host, "host", "", "interface to bind (overrides server.host)")
			flagSet.IntVarP(&flags.port, "port", "p", -1, "control port, 0 for ephemeral (overrides server.port)")
			flagSet.StringVar(&flags.program, "program", "", "program image to load (overrides analysis.program)")
			flagSet.BoolVar(&flags.strict, "strict", false, "answer client errors with 4xx (server.status_codes: strict)")
			flagSet.BoolVarP(&flags.verbose, "verbose", "v", false, "log every request")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Serve a program image on the default port",
				Command:     "cexbridge serve --program tmc.jsonc",
			},
			{
				Description: "Serve with a configuration file",
				Command:     "cexbridge serve --config cexbridge.yaml",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := loadServeConfig(flags)
			if err != nil {
				return err
			}
			level, err := cfg.LogLevel()
			if err != nil {
				return err
			}
			if flags.verbose {
				level = slog.LevelDebug
			}
			logger := cli.NewCommandLogger(level)
			slog.SetDefault(logger)

			server, err := newBridge(cfg, logger)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := server.Start(ctx, cfg.Server.Port); err != nil {
				return err
			}

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			defer signal.Stop(signals)
			return superviseBridge(ctx, server, signals, cfg.Server.ShutdownGrace, logger)
		},
	}
}

// loadServeConfig loads the configuration file and applies flag
// overrides on top of it.
func loadServeConfig(flags serveFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flags.host != "" {
		cfg.Server.Host = flags.host
	}
	if flags.port >= 0 {
		cfg.Server.Port = flags.port
	}
	if flags.program != "" {
		cfg.Analysis.Program = flags.program
	}
	if flags.strict {
		cfg.Server.StatusCodes = config.StatusStrict
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newBridge loads the program image, builds the cleanup pipeline and
// returns a stopped bridge server over them.
func newBridge(cfg *config.Config, logger *slog.Logger) (*bridge.Server, error) {
	if cfg.Analysis.Program == "" {
		return nil, errors.New("no program image: set analysis.program or pass --program")
	}
	loaded, err := analysis.LoadImage(cfg.Analysis.Program)
	if err != nil {
		return nil, err
	}
	session, err := analysis.NewSession(loaded.Image, analysis.SessionOptions{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("program image %s: %w", loaded.Path, err)
	}
	logger.Info("program image loaded",
		"path", loaded.Path,
		"program", loaded.Image.Name,
		"functions", len(loaded.Image.Functions),
		"format", loaded.Format,
		"compression", loaded.Compression,
		"digest", loaded.Digest,
	)

	pipeline, err := newCleanup(cfg.Cleanup, logger)
	if err != nil {
		return nil, err
	}

	statuses, err := bridge.StatusTableFor(cfg.Server.StatusCodes)
	if err != nil {
		return nil, err
	}

	return bridge.NewServer(bridge.Options{
		Facade:            session,
		Host:              cfg.Server.Host,
		Cleanup:           pipeline,
		Logger:            logger,
		DecompileTimeout:  cfg.Analysis.DecompileTimeout,
		ShutdownDelay:     cfg.Server.ShutdownDelay,
		ShutdownGrace:     cfg.Server.ShutdownGrace,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		StatusCodes:       statuses,
	})
}

// newCleanup builds the output pipeline: configured rules first, then
// the rules file. It returns nil when there is nothing to do.
func newCleanup(cfg config.CleanupConfig, logger *slog.Logger) (*cleanup.Pipeline, error) {
	var rules []cleanup.Rule
	for _, rule := range cfg.Rules {
		rules = append(rules, cleanup.Rule{
			Pattern:     rule.Pattern,
			Replacement: rule.Replacement,
			DotAll:      rule.DotAll,
		})
	}
	if cfg.RulesFile != "" {
		fileRules, err := cleanup.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}
	if len(rules) == 0 && len(cfg.FormatCommand) == 0 {
		return nil, nil
	}

	pipeline, err := cleanup.New(cleanup.Options{
		FormatCommand: cfg.FormatCommand,
		FormatTimeout: cfg.FormatTimeout,
		Rules:         rules,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("decompiler output cleanup enabled",
		"rules", pipeline.Len(),
		"formatter", len(cfg.FormatCommand) > 0,
	)
	return pipeline, nil
}

// superviseBridge runs until the bridge stops on its own (after
// /shutdown) or a terminating signal arrives. SIGHUP restarts the
// bridge on the port it is bound to.
func superviseBridge(ctx context.Context, server *bridge.Server, signals <-chan os.Signal, grace time.Duration, logger *slog.Logger) error {
	port := boundPort(server)
	for {
		select {
		case <-server.Done():
			if server.State() == bridge.StateStopped {
				return nil
			}
		case received := <-signals:
			if received == syscall.SIGHUP {
				if err := server.Start(ctx, port); err != nil {
					return fmt.Errorf("restarting bridge: %w", err)
				}
				continue
			}
			logger.Info("stopping bridge", "signal", received.String())
			server.Stop(grace)
			return nil
		}
	}
}

func boundPort(server *bridge.Server) int {
	if address, ok := server.Addr().(*net.TCPAddr); ok {
		return address.Port
	}
	return 0
}
