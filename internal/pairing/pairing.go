// Package pairing implements the short-lived, single-use protocol that
// transfers an identity keypair to a new device via a 6-digit code.
//
// Key material in a pairing record is AEAD-encrypted under a key derived
// from the code: SHA-256(code || userID). The code travels out of band
// (read off the primary device's screen), so the record store never holds
// enough to recover the keys by itself; the derived key's strength is the
// code's ~20 bits, which the 5-minute TTL and single-use redemption bound
// to online guessing against a remote store.
package pairing

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/errs"
	"keyward/internal/util/memzero"
)

// RequestTTL is how long a pairing request stays redeemable.
const RequestTTL = 5 * time.Minute

// Service creates, redeems and sweeps pairing requests and registers
// devices.
type Service struct {
	keys    domain.KeyStore
	records domain.PairingStore
	log     *slog.Logger
	now     func() time.Time
}

// NewService returns a pairing service over the local key store and the
// ephemeral record store.
func NewService(keys domain.KeyStore, records domain.PairingStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		keys:    keys,
		records: records,
		log:     log,
		now:     time.Now,
	}
}

// SetClock overrides the service time source, for expiry tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreatePairingRequest seals the local identity keypair under a
// code-derived key and stores it for RequestTTL. Returns the code to show
// the user and the expiry deadline.
func (s *Service) CreatePairingRequest(ctx context.Context, userID domain.UserID) (code string, expiresAt time.Time, err error) {
	id, ok, err := s.keys.LoadIdentity(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, errs.Newf(errs.KindNotFound, "no local identity for %s", userID)
	}

	code, err = crypto.GeneratePairingCode()
	if err != nil {
		return "", time.Time{}, err
	}

	key := deriveCodeKey(code, userID)
	defer memzero.Zero(key)

	encPub, pubNonce, err := crypto.Encrypt(id.PublicKey.Slice(), key)
	if err != nil {
		return "", time.Time{}, err
	}
	encSec, secNonce, err := crypto.Encrypt(id.SecretKey.Slice(), key)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt = s.now().Add(RequestTTL).UTC()
	request := domain.PairingRequest{
		UserID:             userID,
		PairingCode:        code,
		EncryptedPublicKey: encPub,
		PublicKeyNonce:     pubNonce,
		EncryptedSecretKey: encSec,
		SecretKeyNonce:     secNonce,
		ExpiresAt:          expiresAt,
	}
	if err := s.records.Put(ctx, request, RequestTTL); err != nil {
		return "", time.Time{}, err
	}
	s.log.Info("pairing request created", "user", userID, "expires_at", expiresAt)
	return code, expiresAt, nil
}

// VerifyPairingCode redeems a pairing request. On success the recovered
// identity keypair is saved to the local key store, the record is deleted
// (single use) and the keypair returned. An expired record is deleted and
// reported as ExpiredPairingCode; an absent or undecryptable record is an
// InvalidCode error.
func (s *Service) VerifyPairingCode(ctx context.Context, userID domain.UserID, code string) (domain.IdentityKeyPair, error) {
	request, ok, err := s.records.Get(ctx, userID, code)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	if !ok {
		return domain.IdentityKeyPair{}, errs.New(errs.KindNotFound, "no pairing request for that code")
	}

	if request.Expired(s.now()) {
		if err := s.records.Delete(ctx, userID, code); err != nil {
			return domain.IdentityKeyPair{}, err
		}
		return domain.IdentityKeyPair{}, errs.New(errs.KindExpiredPairingCode, "pairing code expired")
	}

	key := deriveCodeKey(code, userID)
	defer memzero.Zero(key)

	pubRaw, err := crypto.Decrypt(request.EncryptedPublicKey, request.PublicKeyNonce, key)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindInvalidCode, "pairing code does not open this request", err)
	}
	secRaw, err := crypto.Decrypt(request.EncryptedSecretKey, request.SecretKeyNonce, key)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindInvalidCode, "pairing code does not open this request", err)
	}
	defer memzero.Zero(secRaw)
	if len(pubRaw) != domain.KeySize || len(secRaw) != domain.KeySize {
		return domain.IdentityKeyPair{}, errs.New(errs.KindInvalidKey, "malformed key material in pairing request")
	}

	var id domain.IdentityKeyPair
	id.UserID = userID
	copy(id.PublicKey[:], pubRaw)
	copy(id.SecretKey[:], secRaw)
	id.CreatedAt = s.now().UTC()

	// Persist before consuming the record: a failed save leaves the code
	// redeemable so the transfer can be retried.
	if err := s.keys.SaveIdentity(id); err != nil {
		return domain.IdentityKeyPair{}, err
	}

	// Redemption and deletion are one step from the caller's view: a second
	// verify with the same code must not find the record.
	if err := s.records.Delete(ctx, userID, code); err != nil {
		return domain.IdentityKeyPair{}, err
	}

	s.log.Info("pairing request redeemed", "user", userID)
	return id, nil
}

// RegisterDevice stores a DeviceRecord for a new device under userID,
// carrying the local identity public key.
func (s *Service) RegisterDevice(ctx context.Context, userID domain.UserID, deviceName string, isPrimary bool) (domain.DeviceRecord, error) {
	if deviceName == "" {
		return domain.DeviceRecord{}, errs.New(errs.KindInvalidArgument, "empty device name")
	}
	id, ok, err := s.keys.LoadIdentity(userID)
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	if !ok {
		return domain.DeviceRecord{}, errs.Newf(errs.KindNotFound, "no local identity for %s", userID)
	}

	device := domain.DeviceRecord{
		DeviceID:   uuid.NewString(),
		UserID:     userID,
		DeviceName: deviceName,
		PublicKey:  id.PublicKey,
		IsPrimary:  isPrimary,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.keys.SaveDevice(device); err != nil {
		return domain.DeviceRecord{}, err
	}
	return device, nil
}

// CleanupExpired deletes every pairing request for userID past its
// deadline and returns how many were removed.
func (s *Service) CleanupExpired(ctx context.Context, userID domain.UserID) (int, error) {
	requests, err := s.records.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	removed := 0
	now := s.now()
	for _, r := range requests {
		if !r.Expired(now) {
			continue
		}
		if err := s.records.Delete(ctx, userID, r.PairingCode); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("expired pairing requests removed", "user", userID, "count", removed)
	}
	return removed, nil
}

// deriveCodeKey derives the AEAD key protecting a pairing record.
func deriveCodeKey(code string, userID domain.UserID) []byte {
	h := sha256.New()
	h.Write([]byte(code))
	h.Write([]byte(userID))
	return h.Sum(nil)
}
