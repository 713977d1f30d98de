// Package backup seals identity keypairs under a user-chosen passphrase
// and moves the sealed blobs to and from the backup service.
package backup

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"keyward/internal/domain"
	"keyward/internal/errs"
	"keyward/internal/util/memzero"
)

const (
	// The current supported version of the encrypted backup format.
	envelopeVersion = 1

	saltBytes = 16
)

// envelope is the sealed JSON structure holding the ciphertext and KDF
// parameters.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// Seal encrypts an identity keypair under a key derived from password and
// returns the serialized envelope.
func Seal(id domain.IdentityKeyPair, password string) ([]byte, error) {
	raw, err := json.Marshal(id)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "marshal identity", err)
	}
	defer memzero.Zero(raw)

	var salt [saltBytes]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "read salt entropy", err)
	}
	N, r, p := scryptParamsDefault()
	key, err := scrypt.Key([]byte(password), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "derive backup key", err)
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "construct aead", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errs.Wrap(errs.KindInternal, "read nonce entropy", err)
	}
	ct := aead.Seal(nil, nonce, raw, salt[:])

	return json.Marshal(envelope{
		V:      envelopeVersion,
		Salt:   salt[:],
		N:      N,
		R:      r,
		P:      p,
		Nonce:  nonce,
		Cipher: ct,
	})
}

// Open decrypts a serialized envelope. A failed tag check surfaces as a
// WrongPassword error: the passphrase is wrong or the blob was corrupted,
// and the two are indistinguishable by construction.
func Open(blob []byte, password string) (domain.IdentityKeyPair, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindInvalidArgument, "parse backup envelope", err)
	}
	if env.V > envelopeVersion {
		return domain.IdentityKeyPair{}, errs.Newf(errs.KindInvalidArgument, "unsupported backup version %d", env.V)
	}
	if len(env.Salt) != saltBytes {
		return domain.IdentityKeyPair{}, errs.New(errs.KindInvalidArgument, "malformed backup salt")
	}

	key, err := scrypt.Key([]byte(password), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindInvalidArgument, "derive backup key", err)
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindInternal, "construct aead", err)
	}
	raw, err := aead.Open(nil, env.Nonce, env.Cipher, env.Salt)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.New(errs.KindWrongPassword, "wrong password or corrupted backup")
	}
	defer memzero.Zero(raw)

	var id domain.IdentityKeyPair
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindInternal, fmt.Sprintf("parse backup payload v%d", env.V), err)
	}
	return id, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
