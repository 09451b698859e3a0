package crypto

const (
	// RoundsMin is the protocol floor for iterated hashing. Tokens always use
	// exactly this many rounds.
	RoundsMin = 8
	// RoundsMax is the ceiling for iterated hashing (2^24).
	RoundsMax = 16777216

	// SaltSize is the exact salt length accepted by seed extraction and key
	// derivation.
	SaltSize = 128
	// MinAuxiliarySize is the minimum length of a salt or nonce used as an
	// optional token input.
	MinAuxiliarySize = 64
	// NonceSize is the length of nonces produced by GenerateNonce.
	NonceSize = 128

	// KeySize is the length of every seed, key, token and realm key.
	KeySize = 64
	// ShardSize is the length of a realm shard.
	ShardSize = 64
	// CipherKeySize is the length of the AES-256 key taken from a realm key.
	CipherKeySize = 32
	// VectorKeySize is the length of the secret half of the GCM IV.
	VectorKeySize = 16
	// TagKeySize is the length of the secret half of the GCM tag.
	TagKeySize = 16
	// IVSize is the length of a realm IV and of the GCM nonce.
	IVSize = 16
	// TagSize is the length of the detached GCM tag.
	TagSize = 16

	// SerialSize is the length of the big-endian envelope serial.
	SerialSize = 2
	// EnvelopeHeaderSize is serial, vector shard and tag shard.
	EnvelopeHeaderSize = SerialSize + IVSize + TagSize
	// MinEnvelopeSize is the header plus one cipher block.
	MinEnvelopeSize = EnvelopeHeaderSize + blockSize

	// EncryptMin is the smallest plaintext accepted by Encrypt.
	EncryptMin = 1
	// EncryptMax is the largest plaintext accepted by Encrypt; the length
	// must fit the 24-bit frame field.
	EncryptMax = 1<<24 - 1

	counterSize     = 3
	frameHeaderSize = counterSize + 1
	blockSize       = 16
)

// Ciphersuite is the canonical string representation of the algorithm suite.
const Ciphersuite = "STACIE:HMAC-SHA-512:SHA-512:AES-256-GCM"
