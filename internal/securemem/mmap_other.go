//go:build !unix

package securemem

import (
	"fmt"
	"runtime"
)

func mapLocked(length, page int) (mapping, region []byte, err error) {
	return nil, nil, fmt.Errorf("%w: locked memory is not supported on %s", ErrMapFailed, runtime.GOOS)
}

func unmapLocked(mapping, region []byte) error {
	return nil
}
