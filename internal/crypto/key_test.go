package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveHashedKey_KnownAnswer(t *testing.T) {
	t.Parallel()

	seed := mustHex(t, katSeed)

	master, err := DeriveHashedKey(heap, seed, RoundsMin, katUsername, katPassword, katSalt())
	if err != nil {
		t.Fatalf("DeriveHashedKey(seed) error = %v", err)
	}
	defer master.Close()
	if want := mustHex(t, katMaster); !bytes.Equal(master.Bytes(), want) {
		t.Errorf("master = %x, want %x", master.Bytes(), want)
	}

	pwKey, err := DeriveHashedKey(heap, master.Bytes(), RoundsMin, katUsername, katPassword, katSalt())
	if err != nil {
		t.Fatalf("DeriveHashedKey(master) error = %v", err)
	}
	defer pwKey.Close()
	if want := mustHex(t, katPwKey); !bytes.Equal(pwKey.Bytes(), want) {
		t.Errorf("password key = %x, want %x", pwKey.Bytes(), want)
	}
}

func TestDeriveHashedKey_Sensitivity(t *testing.T) {
	t.Parallel()

	seed := mustHex(t, katSeed)
	salt := katSalt()

	ref, err := DeriveHashedKey(heap, seed, RoundsMin, katUsername, katPassword, salt)
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Close()

	tests := []struct {
		name     string
		base     []byte
		rounds   uint32
		username []byte
		password []byte
		salt     []byte
	}{
		{"base bit", flipBit(seed, 300), RoundsMin, katUsername, katPassword, salt},
		{"username bit", seed, RoundsMin, flipBit(katUsername, 3), katPassword, salt},
		{"password bit", seed, RoundsMin, katUsername, flipBit(katPassword, 17), salt},
		{"salt bit", seed, RoundsMin, katUsername, katPassword, flipBit(salt, 1023)},
		{"one more round", seed, RoundsMin + 1, katUsername, katPassword, salt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveHashedKey(heap, tt.base, tt.rounds, tt.username, tt.password, tt.salt)
			if err != nil {
				t.Fatal(err)
			}
			defer got.Close()
			if got.Equal(ref.Bytes()) {
				t.Error("output did not change")
			}
		})
	}
}

func TestDeriveHashedKey_InvalidInput(t *testing.T) {
	t.Parallel()

	seed := mustHex(t, katSeed)

	tests := []struct {
		name     string
		base     []byte
		rounds   uint32
		username []byte
		password []byte
		salt     []byte
		wantErr  error
	}{
		{"short base", seed[:63], RoundsMin, katUsername, katPassword, katSalt(), ErrInvalidKeySize},
		{"rounds too low", seed, 7, katUsername, katPassword, katSalt(), ErrRoundsOutOfRange},
		{"rounds too high", seed, RoundsMax + 1, katUsername, katPassword, katSalt(), ErrRoundsOutOfRange},
		{"empty username", seed, RoundsMin, nil, katPassword, katSalt(), ErrInvalidUsername},
		{"empty password", seed, RoundsMin, katUsername, []byte{}, katSalt(), ErrInvalidPassword},
		{"short salt", seed, RoundsMin, katUsername, katPassword, make([]byte, 64), ErrInvalidSaltSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := &trackingAllocator{}
			key, err := DeriveHashedKey(alloc, tt.base, tt.rounds, tt.username, tt.password, tt.salt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeriveHashedKey() error = %v, want %v", err, tt.wantErr)
			}
			if key != nil || alloc.live() != 0 {
				t.Error("DeriveHashedKey() left output or buffers behind")
			}
		})
	}
}

func BenchmarkDeriveHashedKey(b *testing.B) {
	seed := mustHex(b, katSeed)
	salt := katSalt()
	for i := 0; i < b.N; i++ {
		key, err := DeriveHashedKey(heap, seed, 1024, katUsername, katPassword, salt)
		if err != nil {
			b.Fatal(err)
		}
		key.Close()
	}
}
