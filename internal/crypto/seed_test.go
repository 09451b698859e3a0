package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestExtractSeed_KnownAnswer(t *testing.T) {
	t.Parallel()

	seed, err := ExtractSeed(heap, RoundsMin, katPassword, katSalt())
	if err != nil {
		t.Fatalf("ExtractSeed() error = %v", err)
	}
	defer seed.Close()

	if want := mustHex(t, katSeed); !bytes.Equal(seed.Bytes(), want) {
		t.Errorf("seed = %x, want %x", seed.Bytes(), want)
	}
}

func TestExtractSeed_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := ExtractSeed(heap, 100, katPassword, katSalt())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := ExtractSeed(heap, 100, katPassword, katSalt())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if !a.Equal(b.Bytes()) {
		t.Error("ExtractSeed is not deterministic")
	}
}

func TestExtractSeed_RoundsMatter(t *testing.T) {
	t.Parallel()

	a, _ := ExtractSeed(heap, RoundsMin, katPassword, katSalt())
	defer a.Close()
	b, _ := ExtractSeed(heap, RoundsMin+1, katPassword, katSalt())
	defer b.Close()

	if a.Equal(b.Bytes()) {
		t.Error("seed did not change with round count")
	}
}

func TestExtractSeed_Sensitivity(t *testing.T) {
	t.Parallel()

	base, err := ExtractSeed(heap, RoundsMin, katPassword, katSalt())
	if err != nil {
		t.Fatal(err)
	}
	defer base.Close()

	for _, bit := range []int{0, 7, 100, 8*SaltSize - 1} {
		s, err := ExtractSeed(heap, RoundsMin, katPassword, flipBit(katSalt(), bit))
		if err != nil {
			t.Fatal(err)
		}
		if s.Equal(base.Bytes()) {
			t.Errorf("flipping salt bit %d did not change the seed", bit)
		}
		s.Close()
	}
	for _, bit := range []int{0, 8*len(katPassword) - 1} {
		s, err := ExtractSeed(heap, RoundsMin, flipBit(katPassword, bit), katSalt())
		if err != nil {
			t.Fatal(err)
		}
		if s.Equal(base.Bytes()) {
			t.Errorf("flipping password bit %d did not change the seed", bit)
		}
		s.Close()
	}
}

func TestExtractSeed_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rounds   uint32
		password []byte
		salt     []byte
		wantErr  error
	}{
		{"127-byte salt", RoundsMin, katPassword, make([]byte, 127), ErrInvalidSaltSize},
		{"129-byte salt", RoundsMin, katPassword, make([]byte, 129), ErrInvalidSaltSize},
		{"nil salt", RoundsMin, katPassword, nil, ErrInvalidSaltSize},
		{"empty password", RoundsMin, nil, katSalt(), ErrInvalidPassword},
		{"rounds below floor", RoundsMin - 1, katPassword, katSalt(), ErrRoundsOutOfRange},
		{"rounds above ceiling", RoundsMax + 1, katPassword, katSalt(), ErrRoundsOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := &trackingAllocator{}
			seed, err := ExtractSeed(alloc, tt.rounds, tt.password, tt.salt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ExtractSeed() error = %v, want %v", err, tt.wantErr)
			}
			if seed != nil {
				t.Error("ExtractSeed() returned output with an error")
			}
			if alloc.live() != 0 {
				t.Errorf("%d buffers leaked", alloc.live())
			}
		})
	}
}

func TestExtractSeed_AllocationFailure(t *testing.T) {
	t.Parallel()

	_, err := ExtractSeed(exhausted{}, RoundsMin, katPassword, katSalt())
	if err == nil {
		t.Fatal("ExtractSeed() succeeded without memory")
	}
}

func BenchmarkExtractSeed(b *testing.B) {
	salt := katSalt()
	for i := 0; i < b.N; i++ {
		seed, err := ExtractSeed(heap, 4096, katPassword, salt)
		if err != nil {
			b.Fatal(err)
		}
		seed.Close()
	}
}
