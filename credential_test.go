package stacie

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestDeriveCredential_KnownAnswer(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	c := deriveKAT(t, e)

	if c.Username != "alice" {
		t.Errorf("Username = %q, want alice", c.Username)
	}
	if c.Rounds != RoundsMin {
		t.Errorf("Rounds = %d, want %d", c.Rounds, RoundsMin)
	}

	checks := []struct {
		name string
		got  *SecureBuffer
		want string
	}{
		{"master key", c.MasterKey, katMaster},
		{"password key", c.PasswordKey, katPwKey},
		{"verification token", c.VerificationToken, katVerifier},
	}
	for _, check := range checks {
		if want := mustHex(t, check.want); !bytes.Equal(check.got.Bytes(), want) {
			t.Errorf("%s = %x, want %s", check.name, check.got.Bytes(), check.want)
		}
	}
}

func TestDeriveCredential_Deterministic(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	a := deriveKAT(t, e)
	b := deriveKAT(t, e)

	if !a.MasterKey.Equal(b.MasterKey.Bytes()) {
		t.Error("master keys differ for identical inputs")
	}
	if !a.VerificationToken.Equal(b.VerificationToken.Bytes()) {
		t.Error("verification tokens differ for identical inputs")
	}
}

func TestDeriveCredential_InputSensitivity(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	base := deriveKAT(t, e)

	flipped := func(b []byte, i int) []byte {
		out := bytes.Clone(b)
		out[i] ^= 0x01
		return out
	}

	tests := []struct {
		name     string
		username []byte
		password []byte
		salt     []byte
	}{
		{"username", flipped(katUsername, 0), katPassword, katSalt()},
		{"password", katUsername, flipped(katPassword, 20), katSalt()},
		{"salt", katUsername, katPassword, flipped(katSalt(), 127)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.DeriveCredential(tt.username, tt.password, tt.salt)
			if err != nil {
				t.Fatalf("DeriveCredential() error = %v", err)
			}
			defer c.Close()

			if c.MasterKey.Equal(base.MasterKey.Bytes()) {
				t.Error("master key unchanged after a single bit flip")
			}
			if c.VerificationToken.Equal(base.VerificationToken.Bytes()) {
				t.Error("verification token unchanged after a single bit flip")
			}
		})
	}
}

func TestDeriveCredential_InvalidInput(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)

	tests := []struct {
		name     string
		username []byte
		password []byte
		salt     []byte
	}{
		{"empty username", nil, katPassword, katSalt()},
		{"empty password", katUsername, nil, katSalt()},
		{"short salt", katUsername, katPassword, make([]byte, SaltSize-1)},
		{"long salt", katUsername, katPassword, make([]byte, SaltSize+1)},
		{"no salt", katUsername, katPassword, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.DeriveCredential(tt.username, tt.password, tt.salt)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("DeriveCredential() error = %v, want ErrInvalidInput", err)
			}
			if c != nil {
				t.Error("DeriveCredential() returned a credential with an error")
			}
		})
	}
}

func TestDeriveCredential_AllocationFailure(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t, WithAllocator(exhaustedAllocator{}))

	_, err := e.DeriveCredential(katUsername, katPassword, katSalt())
	if !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("DeriveCredential() error = %v, want ErrResourceExhausted", err)
	}
}

func TestCredential_Close(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	c := deriveKAT(t, e)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for _, b := range []*SecureBuffer{c.MasterKey, c.PasswordKey, c.VerificationToken} {
		if !b.Released() {
			t.Error("key not released after Close")
		}
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	var nilCredential *Credential
	if err := nilCredential.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestEphemeralToken(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	c := deriveKAT(t, e)

	token, err := e.EphemeralToken(c, katNonce())
	if err != nil {
		t.Fatalf("EphemeralToken() error = %v", err)
	}
	defer token.Close()

	if want := mustHex(t, katEphemeral); !bytes.Equal(token.Bytes(), want) {
		t.Errorf("EphemeralToken() = %x, want %s", token.Bytes(), katEphemeral)
	}

	other, err := e.EphemeralToken(c, bytes.Repeat([]byte{0x01}, NonceSize))
	if err != nil {
		t.Fatalf("EphemeralToken() error = %v", err)
	}
	defer other.Close()
	if other.Equal(token.Bytes()) {
		t.Error("different nonces produced the same token")
	}
}

func TestEphemeralToken_InvalidInput(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	c := deriveKAT(t, e)

	tests := []struct {
		name  string
		nonce []byte
	}{
		{"no nonce", nil},
		{"short nonce", make([]byte, 63)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.EphemeralToken(c, tt.nonce); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("EphemeralToken() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	closed := deriveKAT(t, e)
	closed.Close()
	if _, err := e.EphemeralToken(closed, katNonce()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("EphemeralToken(closed) error = %v, want ErrInvalidInput", err)
	}
	if _, err := e.EphemeralToken(nil, katNonce()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("EphemeralToken(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	verifier := mustHex(t, katVerifier)

	c, err := e.Authenticate(katUsername, katPassword, katSalt(), verifier)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	defer c.Close()
	if want := mustHex(t, katMaster); !bytes.Equal(c.MasterKey.Bytes(), want) {
		t.Error("Authenticate() returned the wrong credential")
	}
}

func TestAuthenticate_ConcurrentClose(t *testing.T) {
	e := newArenaEngine(t)
	verifier := mustHex(t, katVerifier)

	var (
		wg      sync.WaitGroup
		once    sync.Once
		started = make(chan struct{})
		start   = make(chan struct{})
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 16; j++ {
				c, err := e.Authenticate(katUsername, katPassword, katSalt(), verifier)
				if errors.Is(err, ErrEngineClosed) {
					return
				}
				once.Do(func() { close(started) })
				if err != nil {
					t.Errorf("Authenticate() error = %v", err)
					return
				}
				c.Close()
			}
		}()
	}

	close(start)
	<-started
	if err := e.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	wg.Wait()

	if _, err := e.Authenticate(katUsername, katPassword, katSalt(), verifier); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Authenticate() after Close error = %v, want ErrEngineClosed", err)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t)
	verifier := mustHex(t, katVerifier)

	tests := []struct {
		name     string
		username []byte
		password []byte
		salt     []byte
		token    []byte
	}{
		{"wrong password", katUsername, []byte("correct horse batterz"), katSalt(), verifier},
		{"wrong username", []byte("bob"), katPassword, katSalt(), verifier},
		{"truncated token", katUsername, katPassword, katSalt(), verifier[:63]},
		{"no token", katUsername, katPassword, katSalt(), nil},
		{"empty password", katUsername, nil, katSalt(), verifier},
		{"short salt", katUsername, katPassword, katSalt()[:127], verifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := e.Authenticate(tt.username, tt.password, tt.salt, tt.token)
			if !errors.Is(err, ErrAuthenticationFailed) {
				t.Errorf("Authenticate() error = %v, want ErrAuthenticationFailed", err)
			}
			if c != nil {
				t.Error("Authenticate() returned a credential on failure")
			}
		})
	}
}

func TestAuthenticate_ResourceErrorsPassThrough(t *testing.T) {
	t.Parallel()

	e := newHeapEngine(t, WithAllocator(exhaustedAllocator{}))

	_, err := e.Authenticate(katUsername, katPassword, katSalt(), mustHex(t, katVerifier))
	if !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("Authenticate() error = %v, want ErrResourceExhausted", err)
	}
	if errors.Is(err, ErrAuthenticationFailed) {
		t.Error("resource failure reported as authentication failure")
	}
}

func BenchmarkDeriveCredential(b *testing.B) {
	e := newHeapEngine(b)
	salt := katSalt()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := e.DeriveCredential(katUsername, katPassword, salt)
		if err != nil {
			b.Fatal(err)
		}
		c.Close()
	}
}
