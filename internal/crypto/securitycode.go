package crypto

import (
	"crypto/sha512"
	"fmt"
	"strings"

	"keyward/internal/domain"
)

const (
	codeHashBytes = 10 // 10 bytes x 3 decimal digits = 30 digits
	codeGroupSize = 5
)

// SecurityCode renders a human-comparable fingerprint of two identity
// public keys: SHA-512 over a || b, the first 10 hash bytes each rendered
// as three zero-padded decimal digits, grouped into six blocks of five
// digits separated by spaces.
//
// Callers must canonicalize the key order (lower user identifier first) so
// both parties compute an identical string.
func SecurityCode(a, b domain.PublicKey) string {
	h := sha512.New()
	h.Write(a[:])
	h.Write(b[:])
	sum := h.Sum(nil)

	var digits strings.Builder
	digits.Grow(codeHashBytes * 3)
	for _, by := range sum[:codeHashBytes] {
		fmt.Fprintf(&digits, "%03d", by)
	}

	s := digits.String()
	groups := make([]string, 0, len(s)/codeGroupSize)
	for i := 0; i < len(s); i += codeGroupSize {
		groups = append(groups, s[i:i+codeGroupSize])
	}
	return strings.Join(groups, " ")
}
