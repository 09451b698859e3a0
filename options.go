package stacie

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Fallback selects what an engine does when its secure arena is exhausted
// or cannot be started.
type Fallback string

const (
	// FallbackNone fails the operation with ErrResourceExhausted.
	FallbackNone Fallback = "none"
	// FallbackHeap degrades to ordinary heap memory, still wiped on release.
	FallbackHeap Fallback = "heap"
	// FallbackGuarded degrades to individually guarded memguard enclaves.
	FallbackGuarded Fallback = "guarded"
)

func (f Fallback) valid() bool {
	switch f {
	case FallbackNone, FallbackHeap, FallbackGuarded:
		return true
	}
	return false
}

const (
	// DefaultArenaLength is the usable size of an engine-owned arena.
	DefaultArenaLength = 64 << 10

	// DefaultMetricsNamespace prefixes the arena gauges.
	DefaultMetricsNamespace = "stacie"
)

// engineConfig holds configuration for the engine.
type engineConfig struct {
	arenaLength   int
	pageAlignment int
	allocator     Allocator
	fallback      Fallback
	bonusRounds   uint32
	logger        *slog.Logger

	registerer       prometheus.Registerer
	metricsNamespace string
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		arenaLength:      DefaultArenaLength,
		fallback:         FallbackNone,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		metricsNamespace: DefaultMetricsNamespace,
	}
}

// Option configures the engine.
type Option func(*engineConfig)

// WithArenaLength sets the usable size of the engine's secure arena in
// bytes. It is raised to 4096 and rounded up to the page size.
// Default: 64 KiB
func WithArenaLength(length int) Option {
	return func(c *engineConfig) {
		c.arenaLength = length
	}
}

// WithPageAlignment sets the arena page alignment. Zero selects the system
// page size; other values must be a power-of-two multiple of it.
func WithPageAlignment(alignment int) Option {
	return func(c *engineConfig) {
		c.pageAlignment = alignment
	}
}

// WithAllocator makes the engine allocate every secret from alloc instead
// of starting its own arena. The caller keeps ownership of alloc.
func WithAllocator(alloc Allocator) Option {
	return func(c *engineConfig) {
		c.allocator = alloc
	}
}

// WithFallback sets what happens when the engine's arena is exhausted or
// cannot be started. It has no effect together with WithAllocator.
// Default: FallbackNone
func WithFallback(f Fallback) Option {
	return func(c *engineConfig) {
		c.fallback = f
	}
}

// WithBonusRounds adds extra hashing rounds on top of the password-length
// based count.
func WithBonusRounds(bonus uint32) Option {
	return func(c *engineConfig) {
		c.bonusRounds = bonus
	}
}

// WithLogger sets the structured logger. Secret material is never logged.
// Default: discard
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricsRegisterer registers arena gauges with reg. Only engines that
// own their arena export metrics.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *engineConfig) {
		c.registerer = reg
	}
}

// WithMetricsNamespace sets the namespace of the arena gauges.
// Default: "stacie"
func WithMetricsNamespace(namespace string) Option {
	return func(c *engineConfig) {
		c.metricsNamespace = namespace
	}
}
