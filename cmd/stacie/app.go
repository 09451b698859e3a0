package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vaultsandbox/stacie"
)

// app carries global flags and lazily built state shared by subcommands.
type app struct {
	streams Config

	configPath   string
	envFile      string
	logLevel     string
	passwordFile string

	config *stacie.Config
	logger *slog.Logger
	engine *stacie.Engine
}

// setup loads the environment file and configuration and builds the
// logger. It runs before every subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := stacie.DefaultConfig()
	if a.configPath != "" {
		loaded, err := stacie.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := stacie.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.config = cfg
	a.logger = slog.New(slog.NewTextHandler(a.streams.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// open returns the engine, creating it on first use.
func (a *app) open() (*stacie.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	engine, err := stacie.New(a.config.Options(a.logger)...)
	if err != nil {
		if errors.Is(err, stacie.ErrResourceExhausted) {
			return nil, fmt.Errorf("%w (try --config with arena.fallback or STACIE_ARENA_MODE=guarded)", err)
		}
		return nil, err
	}
	a.engine = engine
	return engine, nil
}

// close releases the engine, wiping its arena.
func (a *app) close() error {
	if a.engine == nil {
		return nil
	}
	err := a.engine.Close()
	a.engine = nil
	return err
}
