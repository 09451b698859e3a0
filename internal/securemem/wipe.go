package securemem

import "runtime"

// wipePasses is the overwrite sequence applied to released memory. The same
// three passes are used for single buffers and for the whole arena.
var wipePasses = [...]byte{0xFF, 0x80, 0x00}

// Wipe overwrites p with every pattern in turn, finishing with zeros.
func Wipe(p []byte) {
	for _, pattern := range wipePasses {
		for i := range p {
			p[i] = pattern
		}
		runtime.KeepAlive(p)
	}
}
