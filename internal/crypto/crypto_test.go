package crypto_test

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"testing"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/errs"
)

// makeKeyPair returns a fresh Curve25519 key pair.
func makeKeyPair(t *testing.T) (domain.PublicKey, domain.SecretKey) {
	t.Helper()
	pub, sec, err := crypto.GenerateIdentityKeyPair()
	if err != nil {
		t.Fatalf("GenerateIdentityKeyPair: %v", err)
	}
	return pub, sec
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := crypto.RandomBytes(domain.KeySize)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}

	for _, plaintext := range [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte{0xAB}, 64*1024),
	} {
		ct, nonce, err := crypto.Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if len(nonce) != domain.NonceSize {
			t.Fatalf("nonce length = %d, want %d", len(nonce), domain.NonceSize)
		}
		pt, err := crypto.Decrypt(ct, nonce, key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Fatalf("round trip mismatch for %d-byte plaintext", len(plaintext))
		}
	}
}

func TestEncryptRejectsShortKey(t *testing.T) {
	_, _, err := crypto.Encrypt([]byte("x"), make([]byte, 16))
	if !errors.Is(err, errs.ErrInvalidKey) {
		t.Fatalf("want InvalidKey for 16-byte key, got %v", err)
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	key, _ := crypto.RandomBytes(domain.KeySize)
	ct, nonce, err := crypto.Encrypt([]byte("attack at dawn"), key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	flipped := append([]byte(nil), ct...)
	flipped[0] ^= 0x01
	if _, err := crypto.Decrypt(flipped, nonce, key); !errors.Is(err, errs.ErrAuthFailure) {
		t.Fatalf("flipped ciphertext: want AuthFailure, got %v", err)
	}

	badNonce := append([]byte(nil), nonce...)
	badNonce[3] ^= 0x80
	if _, err := crypto.Decrypt(ct, badNonce, key); !errors.Is(err, errs.ErrAuthFailure) {
		t.Fatalf("flipped nonce: want AuthFailure, got %v", err)
	}

	other, _ := crypto.RandomBytes(domain.KeySize)
	if _, err := crypto.Decrypt(ct, nonce, other); !errors.Is(err, errs.ErrAuthFailure) {
		t.Fatalf("wrong key: want AuthFailure, got %v", err)
	}
}

func TestDiffieHellmanSymmetry(t *testing.T) {
	aPub, aSec := makeKeyPair(t)
	bPub, bSec := makeKeyPair(t)

	ab, err := crypto.DeriveSharedSecret(aSec, bPub)
	if err != nil {
		t.Fatalf("DeriveSharedSecret(a, B): %v", err)
	}
	ba, err := crypto.DeriveSharedSecret(bSec, aPub)
	if err != nil {
		t.Fatalf("DeriveSharedSecret(b, A): %v", err)
	}
	if ab != ba {
		t.Fatal("shared secrets differ between the two parties")
	}
}

func TestDeriveMessageKeyDeterministicAndSeparated(t *testing.T) {
	var secret domain.SharedSecret
	copy(secret[:], bytes.Repeat([]byte{0x42}, domain.KeySize))

	k0 := crypto.DeriveMessageKey(secret, 0)
	if k0 != crypto.DeriveMessageKey(secret, 0) {
		t.Fatal("derivation is not deterministic")
	}

	seen := map[[domain.KeySize]byte]uint64{}
	for c := uint64(0); c < 256; c++ {
		k := crypto.DeriveMessageKey(secret, c)
		if prev, dup := seen[k]; dup {
			t.Fatalf("counter %d collides with counter %d", c, prev)
		}
		seen[k] = c
	}
}

func TestSecurityCodeFormatAndOrder(t *testing.T) {
	aPub, _ := makeKeyPair(t)
	bPub, _ := makeKeyPair(t)

	code := crypto.SecurityCode(aPub, bPub)
	if ok, _ := regexp.MatchString(`^\d{5}( \d{5}){5}$`, code); !ok {
		t.Fatalf("code %q is not six space-separated blocks of five digits", code)
	}
	for _, block := range []string{code[:5], code[30:]} {
		if _, err := strconv.Atoi(block); err != nil {
			t.Fatalf("block %q is not numeric", block)
		}
	}

	if crypto.SecurityCode(aPub, bPub) != code {
		t.Fatal("code is not stable across calls")
	}
	if crypto.SecurityCode(bPub, aPub) == code {
		t.Fatal("swapped key order should not produce the same code")
	}
}

func TestGeneratePairingCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := crypto.GeneratePairingCode()
		if err != nil {
			t.Fatalf("GeneratePairingCode: %v", err)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d outside [100000, 999999]", n)
		}
	}
}
