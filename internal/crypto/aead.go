package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// Encrypt seals plaintext with XChaCha20-Poly1305 under key, generating a
// fresh random 24-byte nonce per call.
func Encrypt(plaintext []byte, key []byte) (ciphertext, nonce []byte, err error) {
	if len(key) != domain.KeySize {
		return nil, nil, errs.Newf(errs.KindInvalidKey, "encryption key must be %d bytes, got %d", domain.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindInvalidKey, "construct aead", err)
	}
	nonce = make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, errs.Wrap(errs.KindInternal, "read nonce entropy", err)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens ciphertext, verifying the Poly1305 tag before returning any
// plaintext. Tampering, a wrong key, or a wrong nonce all surface as an
// AuthFailure error.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	if len(key) != domain.KeySize {
		return nil, errs.Newf(errs.KindInvalidKey, "decryption key must be %d bytes, got %d", domain.KeySize, len(key))
	}
	if len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, errs.Newf(errs.KindInvalidArgument, "nonce must be %d bytes, got %d", chacha20poly1305.NonceSizeX, len(nonce))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, "construct aead", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errs.New(errs.KindAuthFailure, "message authentication failed")
	}
	return plaintext, nil
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "read entropy", err)
	}
	return b, nil
}
