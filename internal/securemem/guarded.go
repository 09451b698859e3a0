package securemem

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/awnumar/memguard"
)

// GuardedAllocator backs every buffer with its own memguard LockedBuffer:
// a separate locked mapping with guard pages and a canary.
//
// memguard purges every enclave in the process when it fails to allocate.
// The allocator then poisons itself and invalidates the buffers it handed
// out, so later calls fail with ErrExhausted instead of touching unmapped
// memory.
type GuardedAllocator struct {
	mu       sync.Mutex
	logger   *slog.Logger
	live     map[*Buffer]struct{}
	poisoned bool
}

// NewGuardedAllocator returns a ready allocator. A nil logger discards.
func NewGuardedAllocator(logger *slog.Logger) *GuardedAllocator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GuardedAllocator{
		logger: logger,
		live:   make(map[*Buffer]struct{}),
	}
}

// Alloc implements Allocator.
func (g *GuardedAllocator) Alloc(length int) (*Buffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: allocation of %d bytes", ErrInvalidLength, length)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	enclave, err := g.newEnclave(length)
	if err != nil {
		return nil, err
	}
	b := &Buffer{
		data:    enclave.Bytes(),
		length:  length,
		kind:    KindGuarded,
		owner:   g,
		enclave: enclave,
	}
	g.live[b] = struct{}{}
	return b, nil
}

// newEnclave allocates a mutable LockedBuffer. Callers hold g.mu.
func (g *GuardedAllocator) newEnclave(length int) (enclave *memguard.LockedBuffer, err error) {
	if g.poisoned {
		return nil, fmt.Errorf("%w: guarded allocator purged", ErrExhausted)
	}

	defer func() {
		if r := recover(); r != nil {
			g.poisonLocked()
			g.logger.Error("guarded allocation failed, enclaves purged",
				"length", length,
				"panic", fmt.Sprint(r),
			)
			enclave, err = nil, fmt.Errorf("%w: memguard: %v", ErrExhausted, r)
		}
	}()

	enclave = memguard.NewBuffer(length)
	if !enclave.IsAlive() {
		return nil, fmt.Errorf("%w: memguard returned a null buffer", ErrExhausted)
	}
	enclave.Melt()
	return enclave, nil
}

// poisonLocked invalidates every live buffer. Callers hold g.mu.
func (g *GuardedAllocator) poisonLocked() {
	g.poisoned = true
	for b := range g.live {
		b.mu.Lock()
		b.invalidate()
		b.mu.Unlock()
	}
	clear(g.live)
}

// Live returns the number of outstanding buffers.
func (g *GuardedAllocator) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

func (g *GuardedAllocator) release(b *Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if b.enclave != nil {
		Wipe(b.data)
		b.enclave.Destroy()
	}
	delete(g.live, b)
	b.invalidate()
}

func (g *GuardedAllocator) resize(b *Buffer, length int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrReleased
	}
	if length <= len(b.data) {
		if length < b.length {
			Wipe(b.data[length:b.length])
		}
		b.length = length
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	// newEnclave may purge and invalidate b, which takes b.mu.
	enclave, err := g.newEnclave(length)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		enclave.Destroy()
		return ErrReleased
	}
	data := enclave.Bytes()
	copy(data, b.data[:b.length])
	Wipe(b.data)
	b.enclave.Destroy()

	b.data = data
	b.enclave = enclave
	b.length = length
	return nil
}
