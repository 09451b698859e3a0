package securemem

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// HeapAllocator serves buffers from the Go heap. The memory is wiped on
// release but is neither locked nor guarded. It is meant for tests, for
// platforms without mlock, and as the last link of a fallback chain.
type HeapAllocator struct{}

// Alloc implements Allocator.
func (HeapAllocator) Alloc(length int) (*Buffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: allocation of %d bytes", ErrInvalidLength, length)
	}
	return &Buffer{
		data:   make([]byte, alignUp(length, allocAlignment)),
		length: length,
		kind:   KindHeap,
		owner:  HeapAllocator{},
	}, nil
}

func (HeapAllocator) release(b *Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	Wipe(b.data)
	b.invalidate()
}

func (HeapAllocator) resize(b *Buffer, length int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrReleased
	}
	if length > len(b.data) {
		grown := make([]byte, alignUp(length, allocAlignment))
		copy(grown, b.data[:b.length])
		Wipe(b.data)
		b.data = grown
	} else if length < b.length {
		Wipe(b.data[length:b.length])
	}
	b.length = length
	return nil
}

// FallbackAllocator serves from Primary and degrades to Secondary when the
// primary is exhausted. Every degrade is logged at warn level.
type FallbackAllocator struct {
	Primary   Allocator
	Secondary Allocator
	Logger    *slog.Logger
}

// NewFallbackAllocator chains primary and secondary. A nil logger discards.
func NewFallbackAllocator(primary, secondary Allocator, logger *slog.Logger) *FallbackAllocator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FallbackAllocator{
		Primary:   primary,
		Secondary: secondary,
		Logger:    logger,
	}
}

// Alloc implements Allocator.
func (f *FallbackAllocator) Alloc(length int) (*Buffer, error) {
	b, err := f.Primary.Alloc(length)
	if err == nil {
		b.source = f
		return b, nil
	}
	if !errors.Is(err, ErrExhausted) || f.Secondary == nil {
		return nil, err
	}

	b, fallbackErr := f.Secondary.Alloc(length)
	if fallbackErr != nil {
		return nil, errors.Join(err, fallbackErr)
	}
	b.source = f
	if f.Logger != nil {
		f.Logger.Warn("secure allocator exhausted, using fallback",
			"length", length,
			"kind", b.Kind().String(),
		)
	}
	return b, nil
}
