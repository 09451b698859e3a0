package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vaultsandbox/stacie/internal/securemem"
)

// newGCM returns AES-256-GCM with a 16-byte nonce.
func newGCM(cipherKey []byte) (cipher.AEAD, error) {
	if len(cipherKey) != CipherKeySize {
		return nil, fmt.Errorf("%w: cipher key got %d, want %d", ErrInvalidKeySize, len(cipherKey), CipherKeySize)
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %w", ErrPrimitiveFailure, err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCM: %w", ErrPrimitiveFailure, err)
	}
	return gcm, nil
}

func checkHalfKeys(vectorKey, tagKey []byte) error {
	if len(vectorKey) != VectorKeySize {
		return fmt.Errorf("%w: vector key got %d, want %d", ErrInvalidKeySize, len(vectorKey), VectorKeySize)
	}
	if len(tagKey) != TagKeySize {
		return fmt.Errorf("%w: tag key got %d, want %d", ErrInvalidKeySize, len(tagKey), TagKeySize)
	}
	return nil
}

// framePadding returns the pad count that brings a frame holding n bytes
// of plaintext to a multiple of the block size. It is always 1..16.
func framePadding(n int) int {
	return blockSize - (n+frameHeaderSize)%blockSize
}

// Encrypt seals plaintext into a realm envelope:
//
//	serial(2 BE) || vector shard(16) || tag shard(16) || ciphertext
//
// The GCM IV is vectorKey XOR a fresh random vector shard and the stored
// tag shard is the GCM tag XOR tagKey. The serial is authenticated as
// additional data. The frame is built and sealed in place in a single
// buffer from alloc, sized like the one Decrypt needs to open it.
func Encrypt(alloc securemem.Allocator, serial uint16, vectorKey, tagKey, cipherKey, plaintext []byte) ([]byte, error) {
	if err := checkHalfKeys(vectorKey, tagKey); err != nil {
		return nil, err
	}
	if len(plaintext) < EncryptMin || len(plaintext) > EncryptMax {
		return nil, fmt.Errorf("%w: got %d, want %d..%d", ErrInvalidPlaintextSize, len(plaintext), EncryptMin, EncryptMax)
	}
	gcm, err := newGCM(cipherKey)
	if err != nil {
		return nil, err
	}

	pad := framePadding(len(plaintext))
	frameLen := frameHeaderSize + len(plaintext) + pad

	work, err := alloc.Alloc(frameLen + TagSize)
	if err != nil {
		return nil, err
	}
	defer work.Close()

	ivBuf, err := alloc.Alloc(IVSize)
	if err != nil {
		return nil, err
	}
	defer ivBuf.Close()

	frame := work.Bytes()[:frameLen]
	var length [counterSize]byte
	putCounter(&length, uint32(len(plaintext)))
	copy(frame, length[:])
	frame[counterSize] = byte(pad)
	copy(frame[frameHeaderSize:], plaintext)
	for i := frameHeaderSize + len(plaintext); i < frameLen; i++ {
		frame[i] = byte(pad)
	}

	envelope := make([]byte, EnvelopeHeaderSize+frameLen)
	binary.BigEndian.PutUint16(envelope, serial)
	vectorShard := envelope[SerialSize : SerialSize+IVSize]
	if _, err := io.ReadFull(randReader, vectorShard); err != nil {
		return nil, fmt.Errorf("%w: failed to generate vector shard: %w", ErrPrimitiveFailure, err)
	}

	iv := ivBuf.Bytes()
	subtle.XORBytes(iv, vectorKey, vectorShard)

	sealed := gcm.Seal(frame[:0], iv, frame, envelope[:SerialSize])
	if len(sealed) != frameLen+TagSize {
		return nil, fmt.Errorf("%w: sealed %d bytes, want %d", ErrPrimitiveFailure, len(sealed), frameLen+TagSize)
	}
	copy(envelope[EnvelopeHeaderSize:], sealed[:frameLen])
	subtle.XORBytes(envelope[SerialSize+IVSize:EnvelopeHeaderSize], sealed[frameLen:], tagKey)

	return envelope, nil
}

func checkEnvelope(envelope []byte) error {
	if len(envelope) < MinEnvelopeSize {
		return fmt.Errorf("%w: got %d bytes, want at least %d", ErrInvalidEnvelope, len(envelope), MinEnvelopeSize)
	}
	if (len(envelope)-EnvelopeHeaderSize)%blockSize != 0 {
		return fmt.Errorf("%w: ciphertext of %d bytes is not block aligned", ErrInvalidEnvelope, len(envelope)-EnvelopeHeaderSize)
	}
	return nil
}

// Decrypt opens a realm envelope produced by Encrypt and returns the
// plaintext in the buffer from alloc it was opened in. A tag mismatch yields
// ErrDecryptionFailed; a malformed frame yields ErrInvalidPadding.
func Decrypt(alloc securemem.Allocator, vectorKey, tagKey, cipherKey, envelope []byte) (*securemem.Buffer, error) {
	if err := checkHalfKeys(vectorKey, tagKey); err != nil {
		return nil, err
	}
	if err := checkEnvelope(envelope); err != nil {
		return nil, err
	}
	gcm, err := newGCM(cipherKey)
	if err != nil {
		return nil, err
	}

	vectorShard := envelope[SerialSize : SerialSize+IVSize]
	tagShard := envelope[SerialSize+IVSize : EnvelopeHeaderSize]
	ciphertext := envelope[EnvelopeHeaderSize:]

	work, err := alloc.Alloc(len(ciphertext) + TagSize)
	if err != nil {
		return nil, err
	}

	ivBuf, err := alloc.Alloc(IVSize)
	if err != nil {
		work.Close()
		return nil, err
	}
	defer ivBuf.Close()

	iv := ivBuf.Bytes()
	subtle.XORBytes(iv, vectorKey, vectorShard)

	sealed := work.Bytes()
	copy(sealed, ciphertext)
	subtle.XORBytes(sealed[len(ciphertext):], tagShard, tagKey)

	frame, err := gcm.Open(sealed[:0], iv, sealed, envelope[:SerialSize])
	if err != nil {
		work.Close()
		return nil, ErrDecryptionFailed
	}

	length, err := parseFrame(frame)
	if err != nil {
		work.Close()
		return nil, err
	}

	// The plaintext moves to the front of the work buffer, which becomes
	// the result.
	copy(sealed, frame[frameHeaderSize:frameHeaderSize+length])
	if err := work.Truncate(length); err != nil {
		work.Close()
		return nil, err
	}
	return work, nil
}

// parseFrame validates the length field and every pad byte and returns the
// plaintext length.
func parseFrame(frame []byte) (int, error) {
	length := readCounter(frame)
	pad := int(frame[counterSize])

	if length < EncryptMin || pad < 1 || pad > blockSize {
		return 0, fmt.Errorf("%w: length %d, pad %d", ErrInvalidPadding, length, pad)
	}
	if frameHeaderSize+length+pad != len(frame) {
		return 0, fmt.Errorf("%w: frame of %d bytes cannot hold %d+%d", ErrInvalidPadding, len(frame), length, pad)
	}
	var bad byte
	for _, b := range frame[frameHeaderSize+length:] {
		bad |= b ^ byte(pad)
	}
	if bad != 0 {
		return 0, fmt.Errorf("%w: pad bytes do not match count %d", ErrInvalidPadding, pad)
	}
	return length, nil
}

// EnvelopeSerial returns the serial stored in an envelope without
// decrypting it.
func EnvelopeSerial(envelope []byte) (uint16, error) {
	if err := checkEnvelope(envelope); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(envelope), nil
}
