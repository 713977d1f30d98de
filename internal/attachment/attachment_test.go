package attachment_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"testing"

	"keyward/internal/attachment"
	"keyward/internal/domain"
	"keyward/internal/errs"
)

// fakeSessions serves session records from a map.
type fakeSessions struct {
	sessions map[domain.ConversationID]domain.SessionKey
}

func (f *fakeSessions) Session(conversationID domain.ConversationID) (domain.SessionKey, bool, error) {
	s, ok := f.sessions[conversationID]
	return s, ok, nil
}

// fakeBlobs is an in-memory domain.BlobStore.
type fakeBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{blobs: make(map[string][]byte)} }

func (f *fakeBlobs) Put(_ context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBlobs) Get(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[path]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "no blob at %s", path)
	}
	return append([]byte(nil), b...), nil
}

func (f *fakeBlobs) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	return nil
}

// fixedPolicy returns a constant decision.
type fixedPolicy struct {
	decision domain.UploadDecision
}

func (p fixedPolicy) CanUpload(context.Context) (domain.UploadDecision, error) {
	return p.decision, nil
}

func sessionWithSecret(conv domain.ConversationID, fill byte) domain.SessionKey {
	s := domain.SessionKey{ConversationID: conv}
	for i := range s.SharedSecret {
		s.SharedSecret[i] = fill ^ byte(i)
	}
	return s
}

func newService(t *testing.T, policy domain.UploadPolicy) (*attachment.Service, *fakeBlobs) {
	t.Helper()
	sessions := &fakeSessions{sessions: map[domain.ConversationID]domain.SessionKey{
		"conv-y": sessionWithSecret("conv-y", 0x51),
		"conv-z": sessionWithSecret("conv-z", 0xC3),
		"hollow": {ConversationID: "hollow"}, // zero secret
	}}
	blobs := newFakeBlobs()
	return attachment.NewService(sessions, blobs, policy, nil), blobs
}

func TestFileRoundTrip(t *testing.T) {
	key, err := attachment.GenerateFileKey()
	if err != nil {
		t.Fatalf("GenerateFileKey: %v", err)
	}
	data := []byte("quarterly-report.pdf contents")

	ct, nonce, err := attachment.EncryptFile(data, key)
	if err != nil {
		t.Fatalf("EncryptFile: %v", err)
	}
	pt, err := attachment.DecryptFile(ct, nonce, key)
	if err != nil {
		t.Fatalf("DecryptFile: %v", err)
	}
	if !bytes.Equal(pt, data) {
		t.Fatal("file round trip mismatch")
	}
}

func TestWrapUnwrapAcrossConversations(t *testing.T) {
	svc, _ := newService(t, nil)

	key, _ := attachment.GenerateFileKey()
	wrapped, err := svc.WrapFileKey(key, "conv-y")
	if err != nil {
		t.Fatalf("WrapFileKey: %v", err)
	}

	got, err := svc.UnwrapFileKey(wrapped, "conv-y")
	if err != nil {
		t.Fatalf("UnwrapFileKey: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatal("unwrapped key differs from the original")
	}

	// The wrong conversation's session must fail authentication.
	if _, err := svc.UnwrapFileKey(wrapped, "conv-z"); !errors.Is(err, errs.ErrAuthFailure) {
		t.Fatalf("cross-conversation unwrap: want AuthFailure, got %v", err)
	}

	if _, err := svc.WrapFileKey(key, "no-such"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing session: want NotFound, got %v", err)
	}
	if _, err := svc.WrapFileKey(key, "hollow"); !errors.Is(err, errs.ErrInvalidKeyType) {
		t.Fatalf("zero secret: want InvalidKeyType, got %v", err)
	}
}

func TestUploadDownloadLargeFile(t *testing.T) {
	svc, blobs := newService(t, fixedPolicy{domain.UploadDecision{Allowed: true, MaxSizeBytes: 4 << 20}})

	data := make([]byte, 2<<20) // 2 MB
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand: %v", err)
	}

	ctx := context.Background()
	meta, err := svc.Upload(ctx, "conv-y", "holiday.mp4", data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if meta.Size != int64(len(data)) {
		t.Fatalf("meta size = %d, want %d", meta.Size, len(data))
	}
	if !strings.HasPrefix(meta.Path, "attachments/conv-y/") {
		t.Fatalf("unexpected blob path %q", meta.Path)
	}

	// Stored blob is nonce || ciphertext, never the plaintext.
	stored, err := blobs.Get(ctx, meta.Path)
	if err != nil {
		t.Fatalf("blob get: %v", err)
	}
	if len(stored) != domain.NonceSize+len(data)+16 {
		t.Fatalf("blob length = %d, want nonce+ciphertext+tag = %d", len(stored), domain.NonceSize+len(data)+16)
	}
	if bytes.Contains(stored[:4096], data[:64]) {
		t.Fatal("blob leaks plaintext")
	}

	got, err := svc.Download(ctx, meta)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("downloaded file differs from the original")
	}

	// Download keyed to another conversation fails authentication.
	meta.ConversationID = "conv-z"
	if _, err := svc.Download(ctx, meta); !errors.Is(err, errs.ErrAuthFailure) {
		t.Fatalf("wrong conversation download: want AuthFailure, got %v", err)
	}
}

func TestUploadPolicyEnforcement(t *testing.T) {
	ctx := context.Background()

	denied, _ := newService(t, fixedPolicy{domain.UploadDecision{Allowed: false, Reason: "subscription required"}})
	if _, err := denied.Upload(ctx, "conv-y", "f", []byte("data")); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("denied upload: want InvalidArgument, got %v", err)
	}

	capped, _ := newService(t, fixedPolicy{domain.UploadDecision{Allowed: true, MaxSizeBytes: 8}})
	if _, err := capped.Upload(ctx, "conv-y", "f", make([]byte, 9)); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("oversize upload: want InvalidArgument, got %v", err)
	}
	if _, err := capped.Upload(ctx, "conv-y", "f", make([]byte, 8)); err != nil {
		t.Fatalf("at-limit upload should succeed, got %v", err)
	}

	if _, err := capped.Upload(ctx, "conv-y", "f", nil); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("empty upload: want InvalidArgument, got %v", err)
	}
}
