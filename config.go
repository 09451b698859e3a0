package stacie

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArenaMode selects the allocator an engine built from a Config uses.
type ArenaMode string

const (
	// ArenaLocked starts an engine-owned mlocked arena.
	ArenaLocked ArenaMode = "locked"
	// ArenaGuarded backs every buffer with a memguard enclave.
	ArenaGuarded ArenaMode = "guarded"
	// ArenaHeap uses ordinary heap memory.
	ArenaHeap ArenaMode = "heap"
)

// Config is the file form of the engine options.
type Config struct {
	Arena ArenaConfig `yaml:"arena"`

	// Extra hashing rounds on top of the password-length based count
	BonusRounds uint32 `yaml:"bonus_rounds"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// ArenaConfig configures secure memory.
type ArenaConfig struct {
	Mode ArenaMode `yaml:"mode"`

	// Usable arena size in bytes
	Length int `yaml:"length"`

	// Page alignment in bytes, 0 for the system page size
	PageAlignment int `yaml:"page_alignment"`

	Fallback Fallback `yaml:"fallback"`
}

// DefaultConfig returns the configuration New uses without options.
func DefaultConfig() *Config {
	return &Config{
		Arena: ArenaConfig{
			Mode:     ArenaLocked,
			Length:   DefaultArenaLength,
			Fallback: FallbackNone,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values New would reject.
func (c *Config) Validate() error {
	switch c.Arena.Mode {
	case ArenaLocked, ArenaGuarded, ArenaHeap:
	default:
		return fmt.Errorf("arena.mode must be locked, guarded or heap (got %q)", c.Arena.Mode)
	}
	if c.Arena.Mode == ArenaLocked && c.Arena.Length <= 0 {
		return fmt.Errorf("arena.length must be positive (got %d)", c.Arena.Length)
	}
	if c.Arena.PageAlignment < 0 || c.Arena.PageAlignment&(c.Arena.PageAlignment-1) != 0 {
		return fmt.Errorf("arena.page_alignment must be zero or a power of two (got %d)", c.Arena.PageAlignment)
	}
	if !c.Arena.Fallback.valid() {
		return fmt.Errorf("arena.fallback must be none, heap or guarded (got %q)", c.Arena.Fallback)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from STACIE_* environment variables that are
// set and non-empty.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("STACIE_ARENA_MODE"); v != "" {
		c.Arena.Mode = ArenaMode(v)
	}
	if v := os.Getenv("STACIE_ARENA_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STACIE_ARENA_LENGTH: %w", err)
		}
		c.Arena.Length = n
	}
	if v := os.Getenv("STACIE_PAGE_ALIGNMENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STACIE_PAGE_ALIGNMENT: %w", err)
		}
		c.Arena.PageAlignment = n
	}
	if v := os.Getenv("STACIE_FALLBACK"); v != "" {
		c.Arena.Fallback = Fallback(v)
	}
	if v := os.Getenv("STACIE_BONUS_ROUNDS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("STACIE_BONUS_ROUNDS: %w", err)
		}
		c.BonusRounds = uint32(n)
	}
	if v := os.Getenv("STACIE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Options converts the configuration into engine options. logger may be
// nil.
func (c *Config) Options(logger *slog.Logger) []Option {
	opts := []Option{
		WithBonusRounds(c.BonusRounds),
		WithLogger(logger),
	}
	switch c.Arena.Mode {
	case ArenaGuarded:
		opts = append(opts, WithAllocator(GuardedAllocator(logger)))
	case ArenaHeap:
		opts = append(opts, WithAllocator(HeapAllocator()))
	default:
		opts = append(opts,
			WithArenaLength(c.Arena.Length),
			WithPageAlignment(c.Arena.PageAlignment),
			WithFallback(c.Arena.Fallback),
		)
	}
	return opts
}

// ParseLogLevel maps debug, info, warn and error to slog levels. The empty
// string means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level must be debug, info, warn or error (got %q)", level)
}
