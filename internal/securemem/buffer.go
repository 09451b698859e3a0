package securemem

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// Kind identifies the memory backing a Buffer.
type Kind uint8

const (
	// KindHeap is ordinary Go memory. It is still wiped on release but may
	// be swapped or copied by the runtime.
	KindHeap Kind = iota + 1
	// KindArena is a chunk of a locked, guard-paged Arena.
	KindArena
	// KindGuarded is a memguard enclave with its own guard pages.
	KindGuarded
)

func (k Kind) String() string {
	switch k {
	case KindHeap:
		return "heap"
	case KindArena:
		return "arena"
	case KindGuarded:
		return "guarded"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Allocator hands out zero-filled buffers of exactly the requested length.
type Allocator interface {
	Alloc(length int) (*Buffer, error)
}

// backing is implemented by every allocator that owns buffers.
type backing interface {
	Allocator
	release(b *Buffer)
	resize(b *Buffer, length int) error
}

// Buffer is a length-tracked byte buffer owned by one allocator.
//
// A Buffer must not be copied; pass the pointer. Close wipes the contents
// and returns the memory to its allocator. After Close, Bytes panics and
// further Close calls do nothing.
type Buffer struct {
	mu     sync.Mutex
	data   []byte // full backing capacity
	length int
	kind   Kind
	owner  backing
	closed bool
	source Allocator // allocator that handed b out, when it differs from owner

	offset  int                    // arena chunk offset
	enclave *memguard.LockedBuffer // guarded backing
}

// Bytes returns the contents. The slice points straight into the backing
// memory and must not be retained after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("securemem: read from released buffer")
	}
	return b.data[:b.length:b.length]
}

// Len returns the logical length.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Cap returns the number of bytes available without reallocation.
func (b *Buffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Kind reports the memory backing the buffer.
func (b *Buffer) Kind() Kind {
	return b.kind
}

// Secure reports whether the buffer lives in locked memory.
func (b *Buffer) Secure() bool {
	return b.kind == KindArena || b.kind == KindGuarded
}

// Released reports whether Close has been called or the backing arena
// was stopped.
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Equal compares the contents with other in constant time.
func (b *Buffer) Equal(other []byte) bool {
	return subtle.ConstantTimeCompare(b.Bytes(), other) == 1
}

// Append copies p onto the end of the buffer, growing it through the
// owning allocator when needed. p must not alias the buffer. Growth never
// leaves the owning allocator: an arena buffer that cannot grow in place
// fails with ErrExhausted even when it came from a FallbackAllocator.
func (b *Buffer) Append(p []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrReleased
	}
	start := b.length
	need := start + len(p)
	if need <= len(b.data) {
		copy(b.data[start:need], p)
		b.length = need
		b.mu.Unlock()
		return nil
	}
	owner := b.owner
	b.mu.Unlock()

	if err := owner.resize(b, need); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrReleased
	}
	copy(b.data[start:need], p)
	return nil
}

// Duplicate returns an exact copy allocated from the allocator that handed
// b out, so a buffer from a FallbackAllocator may be copied into the
// secondary when the primary is full.
func (b *Buffer) Duplicate() (*Buffer, error) {
	src := b.Bytes()

	var alloc Allocator = b.owner
	if b.source != nil {
		alloc = b.source
	}
	dup, err := alloc.Alloc(len(src))
	if err != nil {
		return nil, err
	}
	copy(dup.data, src)
	return dup, nil
}

// Truncate shrinks the logical length to length and wipes the cut tail.
// The backing memory is kept until Close.
func (b *Buffer) Truncate(length int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrReleased
	}
	if length < 0 || length > b.length {
		return fmt.Errorf("%w: truncate %d bytes to %d", ErrInvalidLength, b.length, length)
	}
	Wipe(b.data[length:b.length])
	b.length = length
	return nil
}

// Close wipes the buffer and returns its memory. It is safe to call more
// than once.
func (b *Buffer) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	owner := b.owner
	b.mu.Unlock()

	owner.release(b)
	return nil
}

// invalidate marks the buffer released. Callers hold b.mu.
func (b *Buffer) invalidate() {
	b.closed = true
	b.data = nil
	b.length = 0
	b.enclave = nil
}
