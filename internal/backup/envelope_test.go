package backup_test

import (
	"errors"
	"strings"
	"testing"

	"keyward/internal/backup"
	"keyward/internal/domain"
	"keyward/internal/errs"
)

func TestSealOpenRoundTrip(t *testing.T) {
	id := domain.IdentityKeyPair{UserID: "alice"}
	id.PublicKey[0] = 0xA1
	id.SecretKey[31] = 0xB2

	blob, err := backup.Seal(id, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := backup.Open(blob, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.UserID != id.UserID || got.PublicKey != id.PublicKey || got.SecretKey != id.SecretKey {
		t.Fatal("restored identity differs from sealed identity")
	}
}

func TestOpenWrongPassword(t *testing.T) {
	blob, err := backup.Seal(domain.IdentityKeyPair{UserID: "alice"}, "right")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	_, err = backup.Open(blob, "wrong")
	if !errors.Is(err, errs.ErrWrongPassword) {
		t.Fatalf("want WrongPassword, got %v", err)
	}
}

func TestOpenCorruptedBlob(t *testing.T) {
	blob, err := backup.Seal(domain.IdentityKeyPair{UserID: "alice"}, "pass")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	// Flip a byte inside the ciphertext field.
	mangled := strings.Replace(string(blob), `"cipher":"`, `"cipher":"A`, 1)
	if _, err := backup.Open([]byte(mangled), "pass"); err == nil {
		t.Fatal("corrupted blob should not open")
	}
}

func TestRecoveryPhrase(t *testing.T) {
	phrase, err := backup.GenerateRecoveryPhrase()
	if err != nil {
		t.Fatalf("GenerateRecoveryPhrase: %v", err)
	}
	if words := strings.Fields(phrase); len(words) != 12 {
		t.Fatalf("phrase has %d words, want 12", len(words))
	}
	if !backup.ValidRecoveryPhrase(phrase) {
		t.Fatal("generated phrase should validate")
	}
	if backup.ValidRecoveryPhrase("definitely not a mnemonic") {
		t.Fatal("garbage phrase should not validate")
	}
}

func TestStaticPasswordSupplier(t *testing.T) {
	s := backup.NewStaticPassword("secret")
	if p, ok := s.Retrieve(); !ok || p != "secret" {
		t.Fatalf("Retrieve = %q,%v", p, ok)
	}
	s.MarkUsedAndClear()
	if _, ok := s.Retrieve(); ok {
		t.Fatal("Retrieve after clear should report absent")
	}
}

func TestTerminalPasswordSupplier(t *testing.T) {
	var out strings.Builder
	s := backup.NewTerminalPassword(strings.NewReader("hunter2 rest\n"), &out)

	p, ok := s.Prompt("Backup passphrase")
	if !ok || p != "hunter2 rest" {
		t.Fatalf("Prompt = %q,%v", p, ok)
	}
	if !strings.Contains(out.String(), "Backup passphrase") {
		t.Fatal("prompt message was not written")
	}
	if p, ok := s.Retrieve(); !ok || p != "hunter2 rest" {
		t.Fatalf("Retrieve after prompt = %q,%v", p, ok)
	}
	s.MarkUsedAndClear()
	if _, ok := s.Retrieve(); ok {
		t.Fatal("Retrieve after clear should report absent")
	}
}
