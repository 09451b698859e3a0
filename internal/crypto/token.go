package crypto

import (
	"crypto/sha512"
	"fmt"

	"github.com/vaultsandbox/stacie/internal/securemem"
)

// DeriveHashedToken runs exactly RoundsMin rounds of
//
//	token_i = SHA512(token_{i-1} || base || username || [salt] || [nonce] || be24(i))
//
// starting from 64 zero bytes. salt and nonce are optional; an empty slice
// means absent. When present they must be at least MinAuxiliarySize bytes.
//
// The verification token uses the password key with the user's salt; the
// ephemeral token uses the master key with a session nonce.
func DeriveHashedToken(alloc securemem.Allocator, base, username, salt, nonce []byte) (*securemem.Buffer, error) {
	if len(base) != KeySize {
		return nil, fmt.Errorf("%w: base got %d, want %d", ErrInvalidKeySize, len(base), KeySize)
	}
	if len(username) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidUsername)
	}
	if len(salt) > 0 && len(salt) < MinAuxiliarySize {
		return nil, fmt.Errorf("%w: got %d, want at least %d", ErrInvalidSaltSize, len(salt), MinAuxiliarySize)
	}
	if len(nonce) > 0 && len(nonce) < MinAuxiliarySize {
		return nil, fmt.Errorf("%w: got %d, want at least %d", ErrInvalidNonceSize, len(nonce), MinAuxiliarySize)
	}

	token, err := alloc.Alloc(KeySize)
	if err != nil {
		return nil, err
	}
	digest := token.Bytes()

	h := sha512.New()
	var counter [counterSize]byte
	for round := range uint32(RoundsMin) {
		h.Reset()
		h.Write(digest)
		h.Write(base)
		h.Write(username)
		h.Write(salt)
		h.Write(nonce)
		putCounter(&counter, round)
		h.Write(counter[:])

		if err := sumInto(h, digest); err != nil {
			token.Close()
			return nil, fmt.Errorf("%w: sha-512 round %d", err, round)
		}
	}
	return token, nil
}
