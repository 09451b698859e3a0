package securemem

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"unsafe"
)

const (
	// MinArenaLength is the smallest usable region an arena will map.
	// Shorter requests are rounded up to it.
	MinArenaLength = 4096

	// MaxArenaLength bounds the usable region so that alignment arithmetic
	// cannot overflow on 32-bit platforms.
	MaxArenaLength = 1 << 30
)

// Stats is a snapshot of arena usage.
type Stats struct {
	// Total is the usable length of the arena in bytes.
	Total int
	// Allocated is the number of bytes held by live allocations.
	Allocated int
	// Count is the number of live allocations.
	Count int
	// Free is the number of bytes available in free chunks.
	Free int
	// Chunks is the number of chunks, free and allocated.
	Chunks int
}

// Arena is a fixed-size, locked, guard-paged memory region serving
// first-fit allocations. The zero value is not usable; create arenas with
// NewArena and start them with Start.
//
// All operations are safe for concurrent use; a single mutex guards the
// chunk list and the mapping.
type Arena struct {
	mu     sync.Mutex
	logger *slog.Logger

	mapping []byte // region plus guard pages
	region  []byte // usable, locked memory
	base    uintptr
	page    int
	chunks  *chunkList
	live    map[int]*Buffer
}

// ArenaOption configures an Arena.
type ArenaOption func(*Arena)

// WithLogger sets the logger used for lifecycle events and misuse warnings.
func WithLogger(logger *slog.Logger) ArenaOption {
	return func(a *Arena) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewArena returns an idle arena.
func NewArena(opts ...ArenaOption) *Arena {
	a := &Arena{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// resolveAlignment returns the page size the arena should use.
func resolveAlignment(alignment int) (int, error) {
	system := os.Getpagesize()
	if alignment == 0 {
		return system, nil
	}
	if alignment < system || alignment&(alignment-1) != 0 || alignment%system != 0 {
		return 0, fmt.Errorf("%w: %d (system page size %d)", ErrInvalidAlignment, alignment, system)
	}
	return alignment, nil
}

// Start maps and locks a region of at least length bytes. The length is
// raised to MinArenaLength and rounded up to the page alignment; an
// alignment of zero selects the system page size. The region is bracketed
// by inaccessible guard pages.
func (a *Arena) Start(length, pageAlignment int) error {
	page, err := resolveAlignment(pageAlignment)
	if err != nil {
		return err
	}
	if length <= 0 || length > MaxArenaLength {
		return fmt.Errorf("%w: arena length %d", ErrInvalidLength, length)
	}
	length = alignUp(max(length, MinArenaLength), page)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.region != nil {
		return ErrAlreadyStarted
	}

	if limit, limited := memlockLimit(); limited && limit < uint64(length) {
		a.logger.Warn("memlock limit below arena length",
			"limit_bytes", limit,
			"arena_bytes", length,
		)
	}

	mapping, region, err := mapLocked(length, page)
	if err != nil {
		return err
	}
	if err := excludeFromDump(region); err != nil {
		a.logger.Warn("arena not excluded from core dumps", "error", err)
	}

	a.mapping = mapping
	a.region = region
	a.base = uintptr(unsafe.Pointer(unsafe.SliceData(region)))
	a.page = page
	a.chunks = newChunkList(length)
	a.live = make(map[int]*Buffer)

	a.logger.Info("secure arena started",
		"length", length,
		"page_size", page,
	)
	return nil
}

// Stop wipes the whole region, unlocks it and unmaps it together with the
// guard pages. Outstanding buffers are invalidated. Stop on an arena that
// was never started does nothing.
func (a *Arena) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.region == nil {
		return nil
	}

	outstanding := len(a.live)
	for _, b := range a.live {
		b.mu.Lock()
		b.invalidate()
		b.mu.Unlock()
	}

	Wipe(a.region)
	err := unmapLocked(a.mapping, a.region)

	length := len(a.region)
	a.mapping = nil
	a.region = nil
	a.base = 0
	a.chunks = nil
	a.live = nil

	a.logger.Info("secure arena stopped",
		"length", length,
		"outstanding", outstanding,
	)
	return err
}

// Started reports whether the arena currently holds a mapping.
func (a *Arena) Started() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.region != nil
}

// Allocate returns a zero-filled buffer of exactly length bytes backed by
// the first free chunk large enough to hold it.
func (a *Arena) Allocate(length int) (*Buffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: allocation of %d bytes", ErrInvalidLength, length)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.region == nil {
		return nil, ErrNotStarted
	}
	return a.allocateLocked(length)
}

// Alloc implements Allocator.
func (a *Arena) Alloc(length int) (*Buffer, error) {
	return a.Allocate(length)
}

func (a *Arena) allocateLocked(length int) (*Buffer, error) {
	c, ok := a.chunks.allocate(length)
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes requested, %d free", ErrExhausted, length, a.chunks.free())
	}
	data := a.region[c.data():c.end():c.end()]
	clear(data)

	b := &Buffer{
		data:   data,
		length: length,
		kind:   KindArena,
		owner:  a,
		offset: c.offset,
	}
	a.live[c.offset] = b
	return b, nil
}

// Free wipes the buffer's chunk and returns it to the free list. Nil,
// foreign and already released buffers are logged and ignored.
func (a *Arena) Free(b *Buffer) {
	if b == nil {
		a.logger.Warn("free of nil buffer ignored")
		return
	}
	if b.owner != backing(a) {
		a.logger.Warn("free of buffer owned by another allocator ignored", "kind", b.kind)
		return
	}
	a.release(b)
}

func (a *Arena) release(b *Buffer) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		a.logger.Warn("free of released buffer ignored")
		return
	}
	a.freeLocked(b)
}

// freeLocked wipes and releases b's chunk. Callers hold a.mu and b.mu.
func (a *Arena) freeLocked(b *Buffer) {
	if a.region != nil {
		if c, ok := a.chunks.lookup(b.offset); ok && a.live[b.offset] == b {
			Wipe(a.region[c.data():c.end()])
			a.chunks.release(c.offset)
			delete(a.live, c.offset)
		}
	}
	b.invalidate()
}

// Reallocate changes the length of b. Shrinking by at least 256 bytes
// keeps the chunk and wipes the cut tail; any other change moves the
// contents to a new buffer and frees b. When the new allocation fails, b
// is returned unchanged along with the error.
func (a *Arena) Reallocate(b *Buffer, length int) (*Buffer, error) {
	if b == nil || b.owner != backing(a) {
		return b, fmt.Errorf("%w: buffer not owned by this arena", ErrInvalidLength)
	}
	if length <= 0 {
		return b, fmt.Errorf("%w: reallocation to %d bytes", ErrInvalidLength, length)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return b, ErrReleased
	}
	if a.region == nil {
		return b, ErrNotStarted
	}

	if b.length-length >= shrinkThreshold {
		Wipe(b.data[length:b.length])
		b.length = length
		return b, nil
	}

	moved, err := a.allocateLocked(length)
	if err != nil {
		return b, err
	}
	copy(moved.data, b.data[:min(b.length, length)])
	a.freeLocked(b)
	return moved, nil
}

// resize grows or shrinks b in place, moving its contents to a new chunk
// when the current one is too small. The Buffer pointer is preserved.
func (a *Arena) resize(b *Buffer, length int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrReleased
	}
	if a.region == nil {
		return ErrNotStarted
	}
	if length <= len(b.data) {
		if length < b.length {
			Wipe(b.data[length:b.length])
		}
		b.length = length
		return nil
	}

	c, ok := a.chunks.allocate(length)
	if !ok {
		return fmt.Errorf("%w: %d bytes requested, %d free", ErrExhausted, length, a.chunks.free())
	}
	data := a.region[c.data():c.end():c.end()]
	clear(data)
	copy(data, b.data[:b.length])

	if old, ok := a.chunks.lookup(b.offset); ok {
		Wipe(a.region[old.data():old.end()])
		a.chunks.release(old.offset)
	}
	delete(a.live, b.offset)

	b.data = data
	b.offset = c.offset
	b.length = length
	a.live[c.offset] = b
	return nil
}

// IsSecured reports whether p starts inside the arena's locked region.
func (a *Arena) IsSecured(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(p)))

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.region != nil && addr >= a.base && addr < a.base+uintptr(len(a.region))
}

// Stats returns a snapshot of the arena's usage. A stopped arena reports
// zero values.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.region == nil {
		return Stats{}
	}
	return Stats{
		Total:     a.chunks.total,
		Allocated: a.chunks.allocated,
		Count:     a.chunks.allocations,
		Free:      a.chunks.free(),
		Chunks:    len(a.chunks.chunks),
	}
}
