package crypto

import (
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"github.com/vaultsandbox/stacie/internal/securemem"
)

// DeriveRealmKey computes SHA512(master || realm || shard) XOR shard.
func DeriveRealmKey(alloc securemem.Allocator, master, realm, shard []byte) (*securemem.Buffer, error) {
	if len(master) != KeySize {
		return nil, fmt.Errorf("%w: master got %d, want %d", ErrInvalidKeySize, len(master), KeySize)
	}
	if len(realm) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidRealm)
	}
	if len(shard) != ShardSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidShardSize, len(shard), ShardSize)
	}

	key, err := alloc.Alloc(KeySize)
	if err != nil {
		return nil, err
	}
	out := key.Bytes()

	h := sha512.New()
	h.Write(master)
	h.Write(realm)
	h.Write(shard)
	if err := sumInto(h, out); err != nil {
		key.Close()
		return nil, fmt.Errorf("%w: sha-512", err)
	}
	subtle.XORBytes(out, out, shard)
	return key, nil
}

// SplitRealmKey returns views of the vector key [0:16), tag key [16:32)
// and cipher key [32:64) of a realm key.
func SplitRealmKey(realmKey []byte) (vectorKey, tagKey, cipherKey []byte, err error) {
	if len(realmKey) != KeySize {
		return nil, nil, nil, fmt.Errorf("%w: realm key got %d, want %d", ErrInvalidKeySize, len(realmKey), KeySize)
	}
	return realmKey[0:VectorKeySize:VectorKeySize],
		realmKey[VectorKeySize : VectorKeySize+TagKeySize : VectorKeySize+TagKeySize],
		realmKey[KeySize-CipherKeySize : KeySize : KeySize],
		nil
}

// DeriveCipherKey returns a view of bytes [32:64) of a realm key.
func DeriveCipherKey(realmKey []byte) ([]byte, error) {
	_, _, cipherKey, err := SplitRealmKey(realmKey)
	return cipherKey, err
}

// DeriveIV computes bytes [0:16) XOR bytes [16:32) of a realm key into a
// new buffer.
func DeriveIV(alloc securemem.Allocator, realmKey []byte) (*securemem.Buffer, error) {
	vectorKey, tagKey, _, err := SplitRealmKey(realmKey)
	if err != nil {
		return nil, err
	}

	iv, err := alloc.Alloc(IVSize)
	if err != nil {
		return nil, err
	}
	subtle.XORBytes(iv.Bytes(), vectorKey, tagKey)
	return iv, nil
}
