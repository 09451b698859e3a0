package stacie

import (
	"fmt"

	"github.com/vaultsandbox/stacie/internal/crypto"
)

// Realm holds the key material for one named realm of a credential: the
// 64-byte realm key, split into vector, tag and cipher keys, plus the
// derived IV. Close wipes it.
type Realm struct {
	Name string

	engine *Engine
	key    *SecureBuffer
	iv     *SecureBuffer
}

// OpenRealm derives the realm key SHA512(master || name || shard) XOR shard
// for c. shard must be exactly ShardSize bytes; it is not secret on its
// own and is usually stored next to the realm data.
func (e *Engine) OpenRealm(c *Credential, name string, shard []byte) (*Realm, error) {
	const op = "open realm"

	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkClosed(op); err != nil {
		return nil, err
	}
	if err := c.usable(); err != nil {
		return nil, wrapError(op, err)
	}

	key, err := crypto.DeriveRealmKey(e.alloc, c.MasterKey.Bytes(), []byte(name), shard)
	if err != nil {
		return nil, wrapError(op, err)
	}
	iv, err := crypto.DeriveIV(e.alloc, key.Bytes())
	if err != nil {
		key.Close()
		return nil, wrapError(op, err)
	}

	return &Realm{
		Name:   name,
		engine: e,
		key:    key,
		iv:     iv,
	}, nil
}

// begin locks the engine for reading and checks that the realm is usable.
// On success the caller must call e.mu.RUnlock.
func (r *Realm) begin(op string) error {
	r.engine.mu.RLock()
	if err := r.engine.checkClosed(op); err != nil {
		r.engine.mu.RUnlock()
		return err
	}
	if r.key.Released() {
		r.engine.mu.RUnlock()
		return wrapError(op, fmt.Errorf("realm %q closed", r.Name))
	}
	return nil
}

// Encrypt seals plaintext (1 to EncryptMax bytes) into an envelope tagged
// with serial.
func (r *Realm) Encrypt(serial uint16, plaintext []byte) ([]byte, error) {
	const op = "realm encrypt"
	if err := r.begin(op); err != nil {
		return nil, err
	}
	defer r.engine.mu.RUnlock()

	vectorKey, tagKey, cipherKey, err := crypto.SplitRealmKey(r.key.Bytes())
	if err != nil {
		return nil, wrapError(op, err)
	}
	envelope, err := crypto.Encrypt(r.engine.alloc, serial, vectorKey, tagKey, cipherKey, plaintext)
	return envelope, wrapError(op, err)
}

// Decrypt opens an envelope sealed under this realm. Tampering or a wrong
// realm yields ErrIntegrityFailure.
func (r *Realm) Decrypt(envelope []byte) (*SecureBuffer, error) {
	const op = "realm decrypt"
	if err := r.begin(op); err != nil {
		return nil, err
	}
	defer r.engine.mu.RUnlock()

	vectorKey, tagKey, cipherKey, err := crypto.SplitRealmKey(r.key.Bytes())
	if err != nil {
		return nil, wrapError(op, err)
	}
	plaintext, err := crypto.Decrypt(r.engine.alloc, vectorKey, tagKey, cipherKey, envelope)
	return plaintext, wrapError(op, err)
}

// Key returns the 64-byte realm key. The slice is only valid until Close.
func (r *Realm) Key() []byte {
	return r.key.Bytes()
}

// CipherKey returns bytes [32:64) of the realm key.
func (r *Realm) CipherKey() []byte {
	cipherKey, _ := crypto.DeriveCipherKey(r.key.Bytes())
	return cipherKey
}

// IV returns bytes [0:16) XOR bytes [16:32) of the realm key.
func (r *Realm) IV() []byte {
	return r.iv.Bytes()
}

// Close wipes the realm key material.
func (r *Realm) Close() error {
	r.iv.Close()
	return r.key.Close()
}
