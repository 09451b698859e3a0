package stacie

import "github.com/vaultsandbox/stacie/internal/crypto"

// GenerateSalt returns a random SaltSize-byte salt for a new credential.
func GenerateSalt() ([]byte, error) {
	salt, err := crypto.GenerateSalt()
	return salt, wrapError("generate salt", err)
}

// GenerateNonce returns a random NonceSize-byte session nonce.
func GenerateNonce() ([]byte, error) {
	nonce, err := crypto.GenerateNonce()
	return nonce, wrapError("generate nonce", err)
}

// GenerateShard returns a random ShardSize-byte realm shard.
func GenerateShard() ([]byte, error) {
	shard, err := crypto.GenerateShard()
	return shard, wrapError("generate shard", err)
}

// EnvelopeSerial returns the serial of a realm envelope without
// decrypting it.
func EnvelopeSerial(envelope []byte) (uint16, error) {
	serial, err := crypto.EnvelopeSerial(envelope)
	return serial, wrapError("envelope serial", err)
}
