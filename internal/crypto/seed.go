package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"fmt"

	"github.com/vaultsandbox/stacie/internal/securemem"
)

// ExtractSeed derives the 64-byte entropy seed: HMAC-SHA-512 keyed by the
// 128-byte salt, updated once with password for each round.
func ExtractSeed(alloc securemem.Allocator, rounds uint32, password, salt []byte) (*securemem.Buffer, error) {
	if err := ValidateRounds(rounds); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPassword)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSaltSize, len(salt), SaltSize)
	}

	seed, err := alloc.Alloc(KeySize)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha512.New, salt)
	for range rounds {
		mac.Write(password)
	}
	if err := sumInto(mac, seed.Bytes()); err != nil {
		seed.Close()
		return nil, fmt.Errorf("%w: hmac-sha-512", err)
	}
	return seed, nil
}
