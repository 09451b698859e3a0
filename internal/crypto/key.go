package crypto

import (
	"crypto/sha512"
	"fmt"

	"github.com/vaultsandbox/stacie/internal/securemem"
)

// DeriveHashedKey runs the iterated SHA-512 key construction:
//
//	round 0: SHA512(base || username || salt || password || be24(0))
//	round i: SHA512(prev || base || username || salt || password || be24(i))
//
// It produces the master key when base is the entropy seed and the password
// key when base is the master key.
func DeriveHashedKey(alloc securemem.Allocator, base []byte, rounds uint32, username, password, salt []byte) (*securemem.Buffer, error) {
	if err := ValidateRounds(rounds); err != nil {
		return nil, err
	}
	if len(base) != KeySize {
		return nil, fmt.Errorf("%w: base got %d, want %d", ErrInvalidKeySize, len(base), KeySize)
	}
	if len(username) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPassword)
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSaltSize, len(salt), SaltSize)
	}

	key, err := alloc.Alloc(KeySize)
	if err != nil {
		return nil, err
	}
	digest := key.Bytes()

	h := sha512.New()
	var counter [counterSize]byte
	for round := range rounds {
		h.Reset()
		if round > 0 {
			h.Write(digest)
		}
		h.Write(base)
		h.Write(username)
		h.Write(salt)
		h.Write(password)
		putCounter(&counter, round)
		h.Write(counter[:])

		if err := sumInto(h, digest); err != nil {
			key.Close()
			return nil, fmt.Errorf("%w: sha-512 round %d", err, round)
		}
	}
	return key, nil
}
