// Package crypto exposes the stateless primitives used by keyward.
//
// Contents
//
//   - Curve25519 key generation, clamping and Diffie–Hellman
//     (GenerateIdentityKeyPair, DeriveSharedSecret)
//   - Authenticated encryption with XChaCha20-Poly1305 (Encrypt, Decrypt)
//   - Counter-based message-key derivation (DeriveMessageKey)
//   - Security-code rendering for out-of-band verification (SecurityCode)
//   - Random byte and pairing-code generation (RandomBytes,
//     GeneratePairingCode)
//
// # Notes
//
// All functions take and return the fixed-size key types defined in
// internal/domain to avoid accidental reallocations. Callers should treat
// returned secrets as sensitive and rely on memzero.Zero when practical to
// reduce lifetime in memory.
package crypto
