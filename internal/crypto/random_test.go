package crypto

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"
)

func TestGenerate_Sizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  func() ([]byte, error)
		want int
	}{
		{"salt", GenerateSalt, SaltSize},
		{"nonce", GenerateNonce, NonceSize},
		{"shard", GenerateShard, ShardSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.gen()
			if err != nil {
				t.Fatal(err)
			}
			b, err := tt.gen()
			if err != nil {
				t.Fatal(err)
			}
			if len(a) != tt.want {
				t.Errorf("len = %d, want %d", len(a), tt.want)
			}
			if bytes.Equal(a, b) {
				t.Error("two draws are identical")
			}
		})
	}
}

func TestRandomBytes_ReaderFailure(t *testing.T) {
	restore := SetRandReaderForTesting(iotest.ErrReader(errors.New("entropy gone")))
	defer restore()

	if _, err := GenerateSalt(); !errors.Is(err, ErrPrimitiveFailure) {
		t.Errorf("GenerateSalt() error = %v, want ErrPrimitiveFailure", err)
	}
}
