package stacie

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/vaultsandbox/stacie/internal/securemem"
)

// Known-answer inputs: a 21-byte password yields RoundsMin.
var (
	katPassword = []byte("correct horse battery")
	katUsername = []byte("alice")
)

const (
	katMaster    = "3123e395ad52c69ae8b99d0b97f8e1c3015a6690876630b7ff028f0ab46ef8edeffcfa9fa7cd3810b90d8f674ae4f1d9849a330603a9fca4da08a412d78482c1"
	katPwKey     = "10c052c1afb2cc97ec8d273c0d759f40822f35f938b6351e55777e9551420b4ab4c45d20cf252b9db2664e874eecd83612900ecae4068defddc3e9d7c50ac6c6"
	katVerifier  = "776564ec81da38a150dfcfe067f0eb251f836f1df58b123ea4b64794d6e15de4f6f2a88b219c2f9ca0b8123f290200f483cbb256a4755f6e33dde08b16419e25"
	katEphemeral = "c26dc9a59a68e22b9b8aa40bda723c44d50091cf37c870cf621ffd7b048ac3ebfbc6f45478746c7a84ec71c01857f9b2264f39b6353d9611a03da24c380d018b"
	katRealmKey  = "4c5bea045a8bc106f823bb9878ad4bab1efede2f7a327ee4de47f0b4212715a207668522ed6d445a639ec3d15e9b2482d320148cd040525a888bb3d07930d595"
	katIV        = "52a5342b20b9bfe226644b2c598a5e09"
)

func katSalt() []byte {
	salt := make([]byte, SaltSize)
	for i := range salt {
		salt[i] = byte(i)
	}
	return salt
}

func katNonce() []byte {
	nonce := make([]byte, NonceSize)
	for i := range nonce {
		nonce[i] = byte(i) ^ 0xAA
	}
	return nonce
}

func katShard() []byte {
	shard := make([]byte, ShardSize)
	for i := range shard {
		shard[i] = byte(64 + i)
	}
	return shard
}

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// newHeapEngine returns an engine drawing from the heap allocator, so the
// test does not depend on the host allowing mlock.
func newHeapEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithAllocator(HeapAllocator())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

// newArenaEngine returns an engine owning a locked arena, skipping when the
// host refuses to map or lock it.
func newArenaEngine(t testing.TB, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if errors.Is(err, securemem.ErrLockFailed) || errors.Is(err, securemem.ErrMapFailed) {
		t.Skipf("locked memory unavailable: %v", err)
	}
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func deriveKAT(t testing.TB, e *Engine) *Credential {
	t.Helper()
	c, err := e.DeriveCredential(katUsername, katPassword, katSalt())
	if err != nil {
		t.Fatalf("DeriveCredential() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// exhaustedAllocator fails every allocation.
type exhaustedAllocator struct{}

func (exhaustedAllocator) Alloc(int) (*securemem.Buffer, error) {
	return nil, securemem.ErrExhausted
}
