// Package crypto implements the STACIE derivation primitives: the round
// calculator, the HMAC-SHA-512 entropy seed extractor, the iterated SHA-512
// key and token derivers, realm key derivation and the AES-256-GCM realm
// envelope.
//
// # Derivation Chain
//
// For one credential the primitives form a strict chain:
//
//	rounds   := CalculateRounds(len(password), bonus)
//	seed     := ExtractSeed(alloc, rounds, password, salt)
//	master   := DeriveHashedKey(alloc, seed, rounds, username, password, salt)
//	pwKey    := DeriveHashedKey(alloc, master, rounds, username, password, salt)
//	verifier := DeriveHashedToken(alloc, pwKey, username, salt, nil)
//
// Every round of the key deriver hashes the previous digest together with
// the fixed (base, username, salt, password) tuple and a 24-bit big-endian
// round counter. Tokens always run exactly [RoundsMin] rounds.
//
// # Secret Memory
//
// Every function producing secret material takes a [securemem.Allocator]
// and writes its digest straight into a buffer from it. On error all
// buffers allocated by the call are released before returning; no function
// returns partial output.
//
// # Realm Envelopes
//
// A realm key is split into a 16-byte vector key, a 16-byte tag key and a
// 32-byte cipher key. [Encrypt] frames the plaintext as
//
//	be24(len) || pad || plaintext || pad x pad
//
// so that the frame is a multiple of 16 bytes, seals it with AES-256-GCM
// under a 16-byte IV, and stores only the XOR shards of the IV and tag:
//
//	serial(2) || vector shard(16) || tag shard(16) || ciphertext
//
// The serial is authenticated as additional data.
//
// # Base64 Encoding
//
// [ToBase64URL]/[FromBase64URL] encode binary values (salts, nonces,
// shards, keys, envelopes) as URL-safe base64 without padding.
// [DecodeBase64] accepts any of the common alphabets.
package crypto
