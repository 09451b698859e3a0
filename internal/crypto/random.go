package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// randReader is the random source for salts, nonces, shards and vector
// shards.
var randReader io.Reader = rand.Reader

// RandomBytes returns n bytes from the package random source.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, fmt.Errorf("%w: failed to read random bytes: %w", ErrPrimitiveFailure, err)
	}
	return b, nil
}

// GenerateSalt returns a random SaltSize-byte salt.
func GenerateSalt() ([]byte, error) {
	return RandomBytes(SaltSize)
}

// GenerateNonce returns a random NonceSize-byte nonce.
func GenerateNonce() ([]byte, error) {
	return RandomBytes(NonceSize)
}

// GenerateShard returns a random ShardSize-byte realm shard.
func GenerateShard() ([]byte, error) {
	return RandomBytes(ShardSize)
}
