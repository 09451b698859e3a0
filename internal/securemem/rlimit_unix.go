//go:build unix

package securemem

import "golang.org/x/sys/unix"

// unlimitedMemlock is treated as no limit; RLIM_INFINITY differs in type
// and value between platforms.
const unlimitedMemlock = 1 << 62

// memlockLimit returns the soft RLIMIT_MEMLOCK and whether it is finite.
func memlockLimit() (uint64, bool) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlim); err != nil {
		return 0, false
	}
	cur := uint64(rlim.Cur)
	if cur >= unlimitedMemlock {
		return 0, false
	}
	return cur, true
}
