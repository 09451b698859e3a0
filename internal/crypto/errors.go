package crypto

import "errors"

var (
	// ErrInvalidPassword is returned when the password is empty.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidUsername is returned when the username is empty.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidSaltSize is returned when a salt has the wrong length.
	ErrInvalidSaltSize = errors.New("invalid salt size")

	// ErrInvalidNonceSize is returned when a nonce is shorter than
	// MinAuxiliarySize.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidKeySize is returned when a base, master, realm or cipher key
	// has the wrong length.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidShardSize is returned when a realm shard is not ShardSize bytes.
	ErrInvalidShardSize = errors.New("invalid shard size")

	// ErrInvalidRealm is returned when the realm name is empty.
	ErrInvalidRealm = errors.New("invalid realm")

	// ErrRoundsOutOfRange is returned when a round count is outside
	// [RoundsMin, RoundsMax].
	ErrRoundsOutOfRange = errors.New("rounds out of range")

	// ErrInvalidPlaintextSize is returned when a plaintext is empty or does
	// not fit the 24-bit frame length.
	ErrInvalidPlaintextSize = errors.New("invalid plaintext size")

	// ErrInvalidEnvelope is returned when an envelope is too short or its
	// ciphertext is not block aligned.
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrDecryptionFailed is returned when the GCM tag does not verify.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidPadding is returned when an authenticated frame carries an
	// inconsistent length or pad byte.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrPrimitiveFailure is returned when a hash, HMAC or cipher primitive
	// misbehaves.
	ErrPrimitiveFailure = errors.New("cryptographic primitive failure")
)
