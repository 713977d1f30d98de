package pairing_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/errs"
	"keyward/internal/pairing"
	"keyward/internal/pairstore"
	"keyward/internal/store"
)

func newService(t *testing.T) (*pairing.Service, *store.FileKeyStore, *pairstore.MemoryStore) {
	t.Helper()
	keys := store.NewFileKeyStore(t.TempDir())
	if err := keys.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	records := pairstore.NewMemoryStore()
	return pairing.NewService(keys, records, nil), keys, records
}

func saveIdentity(t *testing.T, keys *store.FileKeyStore, userID domain.UserID) domain.IdentityKeyPair {
	t.Helper()
	pub, sec, err := crypto.GenerateIdentityKeyPair()
	if err != nil {
		t.Fatalf("GenerateIdentityKeyPair: %v", err)
	}
	id := domain.IdentityKeyPair{UserID: userID, PublicKey: pub, SecretKey: sec}
	if err := keys.SaveIdentity(id); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	return id
}

func TestPairingRoundTrip(t *testing.T) {
	svc, keys, records := newService(t)
	id := saveIdentity(t, keys, "alice")

	ctx := context.Background()
	code, expiresAt, err := svc.CreatePairingRequest(ctx, "alice")
	if err != nil {
		t.Fatalf("CreatePairingRequest: %v", err)
	}
	if ok, _ := regexp.MatchString(`^\d{6}$`, code); !ok {
		t.Fatalf("code %q is not six digits", code)
	}
	if until := time.Until(expiresAt); until < 4*time.Minute || until > 6*time.Minute {
		t.Fatalf("expiry %v is not ~5 minutes out", until)
	}

	// The stored record must not contain the raw key material.
	rec, ok, err := records.Get(ctx, "alice", code)
	if err != nil || !ok {
		t.Fatalf("record lookup: ok=%v err=%v", ok, err)
	}
	if string(rec.EncryptedSecretKey) == string(id.SecretKey.Slice()) {
		t.Fatal("secret key stored in the clear")
	}

	got, err := svc.VerifyPairingCode(ctx, "alice", code)
	if err != nil {
		t.Fatalf("VerifyPairingCode: %v", err)
	}
	if got.PublicKey != id.PublicKey || got.SecretKey != id.SecretKey {
		t.Fatal("redeemed keypair differs from the original")
	}
}

func TestVerifyPersistsIdentityOnNewDevice(t *testing.T) {
	primary, primaryKeys, records := newService(t)
	id := saveIdentity(t, primaryKeys, "alice")

	// The redeeming device has its own empty key store but reaches the same
	// record store.
	newDeviceKeys := store.NewFileKeyStore(t.TempDir())
	if err := newDeviceKeys.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	newDevice := pairing.NewService(newDeviceKeys, records, nil)

	ctx := context.Background()
	code, _, err := primary.CreatePairingRequest(ctx, "alice")
	if err != nil {
		t.Fatalf("CreatePairingRequest: %v", err)
	}
	if _, err := newDevice.VerifyPairingCode(ctx, "alice", code); err != nil {
		t.Fatalf("VerifyPairingCode: %v", err)
	}

	stored, ok, err := newDeviceKeys.LoadIdentity("alice")
	if err != nil || !ok {
		t.Fatalf("LoadIdentity on new device: ok=%v err=%v", ok, err)
	}
	if stored.PublicKey != id.PublicKey || stored.SecretKey != id.SecretKey {
		t.Fatal("persisted identity differs from the original")
	}
}

func TestPairingSingleUse(t *testing.T) {
	svc, keys, _ := newService(t)
	saveIdentity(t, keys, "alice")

	ctx := context.Background()
	code, _, err := svc.CreatePairingRequest(ctx, "alice")
	if err != nil {
		t.Fatalf("CreatePairingRequest: %v", err)
	}
	if _, err := svc.VerifyPairingCode(ctx, "alice", code); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := svc.VerifyPairingCode(ctx, "alice", code); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second redeem: want NotFound, got %v", err)
	}
}

func TestPairingWrongCode(t *testing.T) {
	svc, keys, records := newService(t)
	saveIdentity(t, keys, "alice")

	ctx := context.Background()
	code, _, err := svc.CreatePairingRequest(ctx, "alice")
	if err != nil {
		t.Fatalf("CreatePairingRequest: %v", err)
	}

	if _, err := svc.VerifyPairingCode(ctx, "alice", "000000"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown code: want NotFound, got %v", err)
	}

	// A record fetched under one code but sealed under another must not
	// decrypt: simulate a store that returns the record for any code.
	rec, _, _ := records.Get(ctx, "alice", code)
	rec.PairingCode = "123456"
	if err := records.Put(ctx, rec, pairing.RequestTTL); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := svc.VerifyPairingCode(ctx, "alice", "123456"); !errors.Is(err, errs.ErrInvalidCode) {
		t.Fatalf("mismatched code: want InvalidCode, got %v", err)
	}
}

func TestPairingExpiry(t *testing.T) {
	svc, keys, records := newService(t)
	saveIdentity(t, keys, "alice")

	ctx := context.Background()
	code, _, err := svc.CreatePairingRequest(ctx, "alice")
	if err != nil {
		t.Fatalf("CreatePairingRequest: %v", err)
	}

	// Advance only the service clock; the store still holds the record.
	svc.SetClock(func() time.Time { return time.Now().Add(pairing.RequestTTL + time.Minute) })

	if _, err := svc.VerifyPairingCode(ctx, "alice", code); !errors.Is(err, errs.ErrExpiredPairingCode) {
		t.Fatalf("want ExpiredPairingCode, got %v", err)
	}
	// And the stale record was deleted as a side effect.
	if _, ok, _ := records.Get(ctx, "alice", code); ok {
		t.Fatal("expired record should have been deleted")
	}
}

func TestCleanupExpired(t *testing.T) {
	svc, keys, _ := newService(t)
	saveIdentity(t, keys, "alice")

	ctx := context.Background()
	if _, _, err := svc.CreatePairingRequest(ctx, "alice"); err != nil {
		t.Fatalf("CreatePairingRequest: %v", err)
	}
	if _, _, err := svc.CreatePairingRequest(ctx, "alice"); err != nil {
		t.Fatalf("CreatePairingRequest: %v", err)
	}

	svc.SetClock(func() time.Time { return time.Now().Add(pairing.RequestTTL + time.Minute) })
	removed, err := svc.CleanupExpired(ctx, "alice")
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	again, err := svc.CleanupExpired(ctx, "alice")
	if err != nil || again != 0 {
		t.Fatalf("second sweep = %d, %v; want 0, nil", again, err)
	}
}

func TestRegisterDevice(t *testing.T) {
	svc, keys, _ := newService(t)
	id := saveIdentity(t, keys, "alice")

	ctx := context.Background()
	device, err := svc.RegisterDevice(ctx, "alice", "laptop", true)
	if err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}
	if device.DeviceID == "" {
		t.Fatal("device id not assigned")
	}
	if device.PublicKey != id.PublicKey {
		t.Fatal("device record carries the wrong public key")
	}

	stored, ok, err := keys.LoadDevice(device.DeviceID)
	if err != nil || !ok {
		t.Fatalf("LoadDevice: ok=%v err=%v", ok, err)
	}
	if !stored.IsPrimary || stored.DeviceName != "laptop" {
		t.Fatalf("stored device = %+v", stored)
	}

	if _, err := svc.RegisterDevice(ctx, "alice", "", false); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("empty name: want InvalidArgument, got %v", err)
	}
	if _, err := svc.RegisterDevice(ctx, "nobody", "phone", false); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("no identity: want NotFound, got %v", err)
	}
}
