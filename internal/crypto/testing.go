package crypto

import "io"

// SetRandReaderForTesting replaces the random source used for salts, nonces,
// shards and envelope vector shards. It returns a function restoring the
// original reader. Since this package is internal, external code cannot
// reach it.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}
