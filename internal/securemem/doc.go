// Package securemem provides the secure memory used for every secret the
// STACIE engine touches: seeds, keys, tokens and cipher frames.
//
// # Arena
//
// [Arena] reserves one fixed region with mmap, surrounds it with PROT_NONE
// guard pages, locks it into physical RAM with mlock and, on Linux, excludes
// it from core dumps. Allocations are served first-fit from an index-based
// chunk list kept outside the region; adjacent free chunks are coalesced on
// release. Every chunk accounts for a 16-byte header so that the sum of all
// chunk lengths plus headers always equals the arena length.
//
// Memory is wiped with three passes (0xFF, 0x80, 0x00) whenever it is
// released: on [Arena.Free], on the truncated tail in [Arena.Reallocate],
// and across the whole region on [Arena.Stop].
//
// # Buffers
//
// Every allocator hands out *[Buffer] values. A Buffer is tagged with the
// [Kind] of memory backing it (locked arena, memguard enclave or ordinary
// heap) and is released with [Buffer.Close]. Releasing a Buffer invalidates
// it for every holder: later reads panic and a second release is a no-op,
// so a double free can never hand the same chunk out twice.
//
// # Allocators
//
// [Allocator] is the only contract the derivation code depends on. It is
// implemented by [Arena], [HeapAllocator], [GuardedAllocator] (memguard) and
// [FallbackAllocator], which degrades to a secondary allocator when the
// primary reports [ErrExhausted].
//
// # Metrics
//
// [NewCollector] exposes arena statistics as Prometheus gauges.
package securemem
