package crypto

import (
	"hash"
	"unsafe"
)

// sumInto finalizes h directly into dst, which must have room for exactly
// h.Size() bytes.
func sumInto(h hash.Hash, dst []byte) error {
	if len(dst) != h.Size() {
		return ErrPrimitiveFailure
	}
	out := h.Sum(dst[:0])
	if len(out) != len(dst) || unsafe.SliceData(out) != unsafe.SliceData(dst) {
		return ErrPrimitiveFailure
	}
	return nil
}
