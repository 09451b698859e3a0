package stacie

import (
	"errors"
	"fmt"

	"github.com/vaultsandbox/stacie/internal/crypto"
	"github.com/vaultsandbox/stacie/internal/securemem"
)

// Credential is the key material derived from one (username, password,
// salt) triple. The keys live in secure buffers owned by the credential;
// Close wipes all of them.
type Credential struct {
	Username string
	Rounds   uint32

	// MasterKey is the root of the realm keys and ephemeral tokens.
	MasterKey *SecureBuffer
	// PasswordKey is derived from MasterKey and only feeds the
	// verification token.
	PasswordKey *SecureBuffer
	// VerificationToken is what a data tier stores to check a login.
	VerificationToken *SecureBuffer
}

// Close wipes and releases every key. It is safe to call more than once.
func (c *Credential) Close() error {
	if c == nil {
		return nil
	}
	for _, b := range []*SecureBuffer{c.MasterKey, c.PasswordKey, c.VerificationToken} {
		if b != nil {
			b.Close()
		}
	}
	return nil
}

// usable reports an error when the credential was closed or its memory was
// reclaimed by a closed engine.
func (c *Credential) usable() error {
	if c == nil || c.MasterKey == nil || c.MasterKey.Released() {
		return fmt.Errorf("%w: credential", securemem.ErrReleased)
	}
	return nil
}

// DeriveCredential runs the full derivation chain: round count, entropy
// seed, master key, password key and verification token. salt must be
// exactly SaltSize bytes. The seed is wiped as soon as the master key
// exists.
func (e *Engine) DeriveCredential(username, password, salt []byte) (*Credential, error) {
	const op = "derive credential"

	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkClosed(op); err != nil {
		return nil, err
	}
	return e.deriveLocked(op, username, password, salt)
}

// deriveLocked runs the derivation chain. The caller holds e.mu.
func (e *Engine) deriveLocked(op string, username, password, salt []byte) (*Credential, error) {
	if len(username) == 0 {
		return nil, wrapError(op, fmt.Errorf("%w: empty", crypto.ErrInvalidUsername))
	}
	rounds, err := crypto.CalculateRounds(len(password), e.bonus)
	if err != nil {
		return nil, wrapError(op, err)
	}

	seed, err := crypto.ExtractSeed(e.alloc, rounds, password, salt)
	if err != nil {
		return nil, wrapError(op, err)
	}
	master, err := crypto.DeriveHashedKey(e.alloc, seed.Bytes(), rounds, username, password, salt)
	seed.Close()
	if err != nil {
		return nil, wrapError(op, err)
	}

	passwordKey, err := crypto.DeriveHashedKey(e.alloc, master.Bytes(), rounds, username, password, salt)
	if err != nil {
		master.Close()
		return nil, wrapError(op, err)
	}

	token, err := crypto.DeriveHashedToken(e.alloc, passwordKey.Bytes(), username, salt, nil)
	if err != nil {
		master.Close()
		passwordKey.Close()
		return nil, wrapError(op, err)
	}

	e.logger.Debug("credential derived",
		"username_length", len(username),
		"rounds", rounds,
	)

	return &Credential{
		Username:          string(username),
		Rounds:            rounds,
		MasterKey:         master,
		PasswordKey:       passwordKey,
		VerificationToken: token,
	}, nil
}

// EphemeralToken derives a session token from the credential's master key
// and a per-session nonce of at least 64 bytes. The user's salt is not
// mixed in.
func (e *Engine) EphemeralToken(c *Credential, nonce []byte) (*SecureBuffer, error) {
	const op = "ephemeral token"

	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkClosed(op); err != nil {
		return nil, err
	}
	if err := c.usable(); err != nil {
		return nil, wrapError(op, err)
	}
	if len(nonce) == 0 {
		return nil, wrapError(op, fmt.Errorf("%w: nonce is required", crypto.ErrInvalidNonceSize))
	}

	token, err := crypto.DeriveHashedToken(e.alloc, c.MasterKey.Bytes(), []byte(c.Username), nil, nonce)
	return token, wrapError(op, err)
}

// Authenticate derives the credential for (username, password, salt) and
// compares its verification token with verificationToken in constant time.
// On success the caller owns the returned credential. Malformed input and
// mismatches both yield ErrAuthenticationFailed; resource and primitive
// failures are returned as they are.
func (e *Engine) Authenticate(username, password, salt, verificationToken []byte) (*Credential, error) {
	const op = "authenticate"

	// The read lock spans the comparison so Close cannot release the
	// token underneath it.
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.checkClosed(op); err != nil {
		return nil, err
	}

	c, err := e.deriveLocked(op, username, password, salt)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrOutOfRange) {
			e.logger.Debug("authentication rejected", "reason", "invalid input")
			return nil, authenticationError()
		}
		return nil, err
	}

	if !c.VerificationToken.Equal(verificationToken) {
		c.Close()
		e.logger.Debug("authentication rejected", "reason", "token mismatch")
		return nil, authenticationError()
	}
	return c, nil
}
