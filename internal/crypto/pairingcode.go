package crypto

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"keyward/internal/errs"
)

const (
	pairingCodeMin  = 100000
	pairingCodeSpan = 900000
)

// GeneratePairingCode draws a uniform 6-digit numeric code in
// [100000, 999999] from the system CSPRNG.
func GeneratePairingCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pairingCodeSpan))
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, "read entropy", err)
	}
	return strconv.FormatInt(n.Int64()+pairingCodeMin, 10), nil
}
