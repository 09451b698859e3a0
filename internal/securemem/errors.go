package securemem

import "errors"

var (
	// ErrNotStarted is returned when an arena is used before Start.
	ErrNotStarted = errors.New("secure arena not started")

	// ErrAlreadyStarted is returned when Start is called on a running arena.
	ErrAlreadyStarted = errors.New("secure arena already started")

	// ErrInvalidLength is returned for zero, negative or oversized lengths.
	ErrInvalidLength = errors.New("invalid length")

	// ErrInvalidAlignment is returned when the page alignment is not a power
	// of two multiple of the system page size.
	ErrInvalidAlignment = errors.New("invalid page alignment")

	// ErrExhausted is returned when no free chunk is large enough for a
	// request. It is not fatal: the arena is left unchanged.
	ErrExhausted = errors.New("secure memory exhausted")

	// ErrMapFailed is returned when the operating system refuses the mapping.
	ErrMapFailed = errors.New("secure memory mapping failed")

	// ErrProtectFailed is returned when the guard pages cannot be protected.
	ErrProtectFailed = errors.New("guard page protection failed")

	// ErrLockFailed is returned when the region cannot be locked into RAM.
	ErrLockFailed = errors.New("secure memory lock failed")

	// ErrReleased is returned when a released buffer is modified.
	ErrReleased = errors.New("buffer has been released")
)
