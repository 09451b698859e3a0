//go:build !unix

package securemem

func memlockLimit() (uint64, bool) {
	return 0, false
}
