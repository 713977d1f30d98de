package crypto

import (
	"crypto/sha512"
	"encoding/binary"

	"keyward/internal/domain"
)

// DeriveMessageKey derives the symmetric key for one message from the
// conversation's shared secret and the sender's counter: the first 32 bytes
// of SHA-512(secret || big-endian-uint64(counter)).
//
// The derivation is deterministic so the receiver can reproduce the key
// from the counter carried alongside the ciphertext. Distinct counters
// under one secret yield independent keys.
func DeriveMessageKey(secret domain.SharedSecret, counter uint64) [domain.KeySize]byte {
	h := sha512.New()
	h.Write(secret[:])

	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], counter)
	h.Write(ctr[:])

	var key [domain.KeySize]byte
	copy(key[:], h.Sum(nil))
	return key
}
