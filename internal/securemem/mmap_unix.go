//go:build unix

package securemem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapLocked maps length bytes of anonymous memory between two PROT_NONE
// guard pages and locks the usable part. Everything done so far is undone
// when a step fails.
func mapLocked(length, page int) (mapping, region []byte, err error) {
	mapping, err = unix.Mmap(-1, 0, length+2*page, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMapFailed, err)
	}

	if err := unix.Mprotect(mapping[:page], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mapping)
		return nil, nil, fmt.Errorf("%w: leading guard page: %w", ErrProtectFailed, err)
	}
	if err := unix.Mprotect(mapping[page+length:], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mapping)
		return nil, nil, fmt.Errorf("%w: trailing guard page: %w", ErrProtectFailed, err)
	}

	region = mapping[page : page+length : page+length]
	if err := unix.Mlock(region); err != nil {
		_ = unix.Munmap(mapping)
		return nil, nil, fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	return mapping, region, nil
}

func unmapLocked(mapping, region []byte) error {
	unlockErr := unix.Munlock(region)
	if err := unix.Munmap(mapping); err != nil {
		return fmt.Errorf("%w: munmap: %w", ErrMapFailed, err)
	}
	if unlockErr != nil {
		return fmt.Errorf("%w: munlock: %w", ErrLockFailed, unlockErr)
	}
	return nil
}
