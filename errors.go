package stacie

import (
	"errors"
	"fmt"

	"github.com/vaultsandbox/stacie/internal/crypto"
	"github.com/vaultsandbox/stacie/internal/securemem"
)

// Sentinel errors for errors.Is() checks. Every error returned by an
// Engine matches exactly one of them.
var (
	// ErrInvalidInput is returned for empty or wrongly sized usernames,
	// passwords, salts, nonces, keys, shards, realms and envelopes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfRange is returned when a round count falls outside
	// [RoundsMin, RoundsMax].
	ErrOutOfRange = errors.New("value out of range")

	// ErrPrimitiveFailure is returned when a hash, HMAC, cipher or random
	// source fails.
	ErrPrimitiveFailure = errors.New("cryptographic primitive failure")

	// ErrResourceExhausted is returned when secure memory cannot be mapped,
	// locked or allocated.
	ErrResourceExhausted = errors.New("secure memory exhausted")

	// ErrIntegrityFailure is returned when an envelope fails tag or frame
	// validation.
	ErrIntegrityFailure = errors.New("integrity check failed")

	// ErrAuthenticationFailed is returned by Authenticate for any mismatch
	// or malformed credential, without saying which.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrEngineClosed is returned when operations are attempted on a closed
	// engine.
	ErrEngineClosed = errors.New("engine has been closed")
)

// StacieError is implemented by all errors returned by this package.
type StacieError interface {
	error
	StacieError() // marker method
}

// Error describes a failed engine operation. Kind is one of the package
// sentinels; Err is the underlying cause, if any.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// StacieError implements the StacieError interface.
func (e *Error) StacieError() {}

// classify maps an internal error to its sentinel.
func classify(err error) error {
	switch {
	case errors.Is(err, crypto.ErrRoundsOutOfRange):
		return ErrOutOfRange

	case errors.Is(err, crypto.ErrDecryptionFailed),
		errors.Is(err, crypto.ErrInvalidPadding):
		return ErrIntegrityFailure

	case errors.Is(err, crypto.ErrPrimitiveFailure):
		return ErrPrimitiveFailure

	case errors.Is(err, securemem.ErrExhausted),
		errors.Is(err, securemem.ErrNotStarted),
		errors.Is(err, securemem.ErrMapFailed),
		errors.Is(err, securemem.ErrProtectFailed),
		errors.Is(err, securemem.ErrLockFailed):
		return ErrResourceExhausted

	case errors.Is(err, crypto.ErrInvalidPassword),
		errors.Is(err, crypto.ErrInvalidUsername),
		errors.Is(err, crypto.ErrInvalidSaltSize),
		errors.Is(err, crypto.ErrInvalidNonceSize),
		errors.Is(err, crypto.ErrInvalidKeySize),
		errors.Is(err, crypto.ErrInvalidShardSize),
		errors.Is(err, crypto.ErrInvalidRealm),
		errors.Is(err, crypto.ErrInvalidPlaintextSize),
		errors.Is(err, crypto.ErrInvalidEnvelope),
		errors.Is(err, securemem.ErrInvalidLength),
		errors.Is(err, securemem.ErrInvalidAlignment),
		errors.Is(err, securemem.ErrReleased),
		errors.Is(err, securemem.ErrAlreadyStarted):
		return ErrInvalidInput
	}
	return ErrPrimitiveFailure
}

// wrapError converts internal errors to *Error so that errors.Is() checks
// work with the public sentinels.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var stacieErr *Error
	if errors.As(err, &stacieErr) {
		return err
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func closedError(op string) error {
	return &Error{Op: op, Kind: ErrEngineClosed}
}

func authenticationError() error {
	return &Error{Op: "authenticate", Kind: ErrAuthenticationFailed}
}
