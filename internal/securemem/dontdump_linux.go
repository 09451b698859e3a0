package securemem

import "golang.org/x/sys/unix"

// excludeFromDump keeps region out of core dumps. Failure is not fatal;
// the region is still locked against swap.
func excludeFromDump(region []byte) error {
	return unix.Madvise(region, unix.MADV_DONTDUMP)
}
