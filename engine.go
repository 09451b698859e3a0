package stacie

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaultsandbox/stacie/internal/crypto"
	"github.com/vaultsandbox/stacie/internal/securemem"
)

// Protocol constants. They are part of the contract with existing derived
// material and never change.
const (
	RoundsMin  = crypto.RoundsMin
	RoundsMax  = crypto.RoundsMax
	SaltSize   = crypto.SaltSize
	NonceSize  = crypto.NonceSize
	KeySize    = crypto.KeySize
	ShardSize  = crypto.ShardSize
	EncryptMax = crypto.EncryptMax
)

// SecureBuffer holds secret bytes in memory obtained from an Allocator.
// Close wipes and releases it; after Close, Bytes panics.
type SecureBuffer = securemem.Buffer

// ArenaStats is a snapshot of secure arena usage.
type ArenaStats = securemem.Stats

// Allocator hands out zero-filled secure buffers.
type Allocator = securemem.Allocator

// BufferKind identifies the memory backing a SecureBuffer.
type BufferKind = securemem.Kind

// Buffer kinds.
const (
	KindHeap    = securemem.KindHeap
	KindArena   = securemem.KindArena
	KindGuarded = securemem.KindGuarded
)

// HeapAllocator returns an allocator backed by ordinary Go memory. Buffers
// are wiped on release but may be swapped. Use it in tests or where locked
// memory is unavailable.
func HeapAllocator() Allocator {
	return securemem.HeapAllocator{}
}

// GuardedAllocator returns an allocator backing every buffer with its own
// memguard enclave. A nil logger discards.
func GuardedAllocator(logger *slog.Logger) Allocator {
	return securemem.NewGuardedAllocator(logger)
}

// Engine derives STACIE credentials, tokens and realm keys. All secret
// intermediates live in buffers from the engine's allocator, by default a
// locked, guard-paged arena the engine owns.
//
// An Engine is safe for concurrent use. Close releases the arena and
// invalidates every buffer it handed out.
type Engine struct {
	mu     sync.RWMutex
	closed bool

	arena     *securemem.Arena // nil when the allocator was injected
	alloc     Allocator
	bonus     uint32
	logger    *slog.Logger
	registry  prometheus.Registerer
	collector prometheus.Collector
}

// New creates an engine. Unless WithAllocator is given it starts a secure
// arena of WithArenaLength bytes.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.fallback.valid() {
		return nil, &Error{Op: "new", Kind: ErrInvalidInput, Err: fmt.Errorf("unknown fallback %q", cfg.fallback)}
	}

	e := &Engine{
		alloc:  cfg.allocator,
		bonus:  cfg.bonusRounds,
		logger: cfg.logger,
	}
	if e.alloc != nil {
		return e, nil
	}

	if err := e.startArena(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// startArena starts the engine-owned arena and wires fallback and metrics.
func (e *Engine) startArena(cfg *engineConfig) error {
	var secondary Allocator
	switch cfg.fallback {
	case FallbackHeap:
		secondary = securemem.HeapAllocator{}
	case FallbackGuarded:
		secondary = securemem.NewGuardedAllocator(cfg.logger)
	}

	arena := securemem.NewArena(securemem.WithLogger(cfg.logger))
	if err := arena.Start(cfg.arenaLength, cfg.pageAlignment); err != nil {
		if secondary == nil || errors.Is(err, securemem.ErrInvalidLength) || errors.Is(err, securemem.ErrInvalidAlignment) {
			return wrapError("new", err)
		}
		cfg.logger.Warn("secure arena unavailable, using fallback only",
			"fallback", string(cfg.fallback),
			"error", err,
		)
		e.alloc = secondary
		return nil
	}

	e.arena = arena
	e.alloc = arena
	if secondary != nil {
		e.alloc = securemem.NewFallbackAllocator(arena, secondary, cfg.logger)
	}

	if cfg.registerer != nil {
		collector := securemem.NewCollector(arena, cfg.metricsNamespace)
		if err := cfg.registerer.Register(collector); err != nil {
			_ = arena.Stop()
			return &Error{Op: "new", Kind: ErrInvalidInput, Err: fmt.Errorf("register arena metrics: %w", err)}
		}
		e.registry = cfg.registerer
		e.collector = collector
	}
	return nil
}

// checkClosed returns an ErrEngineClosed error if the engine has been
// closed. Callers hold e.mu.
func (e *Engine) checkClosed(op string) error {
	if e.closed {
		return closedError(op)
	}
	return nil
}

// Close stops the engine-owned arena, wiping it. Buffers obtained from the
// engine become unusable. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.collector != nil {
		e.registry.Unregister(e.collector)
	}
	if e.arena != nil {
		if err := e.arena.Stop(); err != nil {
			return wrapError("close", err)
		}
	}
	return nil
}

// Rounds returns the iteration count the engine uses for password.
func (e *Engine) Rounds(password []byte) (uint32, error) {
	rounds, err := crypto.CalculateRounds(len(password), e.bonus)
	return rounds, wrapError("rounds", err)
}

// Stats returns the usage of the engine-owned arena. The second result is
// false when the engine uses an injected allocator or has been closed.
func (e *Engine) Stats() (ArenaStats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.arena == nil || e.closed {
		return ArenaStats{}, false
	}
	return e.arena.Stats(), true
}

// Allocator returns the allocator the engine draws secrets from.
func (e *Engine) Allocator() Allocator {
	return e.alloc
}

// Secure reports whether b lives in the engine's locked arena.
func (e *Engine) Secure(b []byte) bool {
	return e.arena != nil && e.arena.IsSecured(b)
}
