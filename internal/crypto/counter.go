package crypto

// putCounter writes the low 24 bits of n big-endian into dst.
func putCounter(dst *[counterSize]byte, n uint32) {
	dst[0] = byte(n >> 16)
	dst[1] = byte(n >> 8)
	dst[2] = byte(n)
}

// readCounter reads a 24-bit big-endian value.
func readCounter(src []byte) int {
	return int(src[0])<<16 | int(src[1])<<8 | int(src[2])
}
