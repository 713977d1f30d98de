package blob_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"keyward/internal/blob"
	"keyward/internal/errs"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s := blob.NewFSStore(t.TempDir())
	ctx := context.Background()

	data := []byte{0x18, 0x2C, 0x00, 0x7F}
	if err := s.Put(ctx, "attachments/conv-1/obj", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "attachments/conv-1/obj")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("blob round trip mismatch")
	}

	if err := s.Remove(ctx, "attachments/conv-1/obj"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, "attachments/conv-1/obj"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get after Remove: want NotFound, got %v", err)
	}
	if err := s.Remove(ctx, "attachments/conv-1/obj"); err != nil {
		t.Fatalf("second Remove should be a no-op, got %v", err)
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s := blob.NewFSStore(t.TempDir())
	ctx := context.Background()

	for _, path := range []string{"../escape", "a/../../b", ""} {
		if err := s.Put(ctx, path, []byte("x")); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("Put(%q): want InvalidArgument, got %v", path, err)
		}
	}
}
