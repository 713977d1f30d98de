package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// FSStore keeps blobs as files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore returns a filesystem blob store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// Put writes data under path, creating parent directories as needed.
func (s *FSStore) Put(_ context.Context, path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return errs.Wrap(errs.KindIO, "create blob directory", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errs.Wrap(errs.KindIO, "write blob", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return errs.Wrap(errs.KindIO, "commit blob", err)
	}
	return nil
}

// Get reads the blob at path.
func (s *FSStore) Get(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Newf(errs.KindNotFound, "no blob at %s", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "read blob", err)
	}
	return data, nil
}

// Remove deletes the blob at path; idempotent.
func (s *FSStore) Remove(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.Wrap(errs.KindIO, "remove blob", err)
	}
	return nil
}

// resolve rejects paths that would escape the root.
func (s *FSStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(path, "..") || clean == "/" {
		return "", errs.Newf(errs.KindInvalidArgument, "invalid blob path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}

// Compile-time assertion that FSStore implements domain.BlobStore.
var _ domain.BlobStore = (*FSStore)(nil)
