package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// GenerateIdentityKeyPair returns a fresh Curve25519 key pair.
// The secret key is clamped per RFC 7748.
func GenerateIdentityKeyPair() (pub domain.PublicKey, sec domain.SecretKey, err error) {
	if _, err = rand.Read(sec[:]); err != nil {
		return pub, sec, errs.Wrap(errs.KindInternal, "read entropy", err)
	}
	clamp(&sec)
	pb, err := curve25519.X25519(sec.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, sec, errs.Wrap(errs.KindInternal, "derive public key", err)
	}
	copy(pub[:], pb)
	return pub, sec, nil
}

// DeriveSharedSecret computes the X25519 agreement of our secret key and
// the peer's public key. Symmetric: swapping the parties yields the same
// secret.
func DeriveSharedSecret(sec domain.SecretKey, peer domain.PublicKey) (domain.SharedSecret, error) {
	var out domain.SharedSecret
	secret, err := curve25519.X25519(sec.Slice(), peer.Slice())
	if err != nil {
		return out, errs.Wrap(errs.KindInvalidKey, "x25519 agreement", err)
	}
	copy(out[:], secret)
	return out, nil
}

func clamp(k *domain.SecretKey) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
