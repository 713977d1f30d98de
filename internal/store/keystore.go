// Package store persists keyward's local records as JSON files under a
// single directory: identities, sessions, and devices each live in their
// own file, rewritten atomically on every change.
package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

const (
	identitiesFilename = "identities.json"
	sessionsFilename   = "sessions.json"
	devicesFilename    = "devices.json"

	fileMode = os.FileMode(0o600)
	dirMode  = os.FileMode(0o700)
)

// FileKeyStore is a file-backed domain.KeyStore rooted at one directory.
// Every mutation rewrites the affected record file through a temp file and
// rename, so a crash never leaves a partially written record behind.
type FileKeyStore struct {
	dir string

	mu     sync.Mutex
	opened bool
}

// NewFileKeyStore returns a FileKeyStore rooted at dir. Open must be called
// before any other operation.
func NewFileKeyStore(dir string) *FileKeyStore {
	return &FileKeyStore{dir: dir}
}

// Open creates the store directory and marks the store usable.
func (s *FileKeyStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return errs.Wrap(errs.KindIO, "create store directory", err)
	}
	s.opened = true
	return nil
}

// SaveIdentity upserts an identity keypair record.
func (s *FileKeyStore) SaveIdentity(id domain.IdentityKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return errs.ErrNotInitialized
	}
	if id.CreatedAt.IsZero() {
		id.CreatedAt = time.Now().UTC()
	}
	ids := map[domain.UserID]domain.IdentityKeyPair{}
	if err := s.read(identitiesFilename, &ids); err != nil {
		return err
	}
	ids[id.UserID] = id
	return s.write(identitiesFilename, ids)
}

// LoadIdentity returns the identity for userID, if stored.
func (s *FileKeyStore) LoadIdentity(userID domain.UserID) (domain.IdentityKeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return domain.IdentityKeyPair{}, false, errs.ErrNotInitialized
	}
	ids := map[domain.UserID]domain.IdentityKeyPair{}
	if err := s.read(identitiesFilename, &ids); err != nil {
		return domain.IdentityKeyPair{}, false, err
	}
	id, ok := ids[userID]
	return id, ok, nil
}

// DeleteIdentity removes the identity for userID. Deleting a missing
// record is not an error.
func (s *FileKeyStore) DeleteIdentity(userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return errs.ErrNotInitialized
	}
	ids := map[domain.UserID]domain.IdentityKeyPair{}
	if err := s.read(identitiesFilename, &ids); err != nil {
		return err
	}
	if _, ok := ids[userID]; !ok {
		return nil
	}
	delete(ids, userID)
	return s.write(identitiesFilename, ids)
}

// SaveSession upserts a session record. Used both for initial creation
// (counter 0) and for counter increments; serializing concurrent
// increments on one conversation is the caller's responsibility.
func (s *FileKeyStore) SaveSession(session domain.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return errs.ErrNotInitialized
	}
	session.UpdatedAt = time.Now().UTC()
	sessions := map[domain.ConversationID]domain.SessionKey{}
	if err := s.read(sessionsFilename, &sessions); err != nil {
		return err
	}
	sessions[session.ConversationID] = session
	return s.write(sessionsFilename, sessions)
}

// LoadSession returns the session for conversationID, if stored.
func (s *FileKeyStore) LoadSession(conversationID domain.ConversationID) (domain.SessionKey, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return domain.SessionKey{}, false, errs.ErrNotInitialized
	}
	sessions := map[domain.ConversationID]domain.SessionKey{}
	if err := s.read(sessionsFilename, &sessions); err != nil {
		return domain.SessionKey{}, false, err
	}
	session, ok := sessions[conversationID]
	return session, ok, nil
}

// DeleteSession removes the session for conversationID; idempotent.
func (s *FileKeyStore) DeleteSession(conversationID domain.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return errs.ErrNotInitialized
	}
	sessions := map[domain.ConversationID]domain.SessionKey{}
	if err := s.read(sessionsFilename, &sessions); err != nil {
		return err
	}
	if _, ok := sessions[conversationID]; !ok {
		return nil
	}
	delete(sessions, conversationID)
	return s.write(sessionsFilename, sessions)
}

// SaveDevice upserts a device record.
func (s *FileKeyStore) SaveDevice(device domain.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return errs.ErrNotInitialized
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	devices := map[string]domain.DeviceRecord{}
	if err := s.read(devicesFilename, &devices); err != nil {
		return err
	}
	devices[device.DeviceID] = device
	return s.write(devicesFilename, devices)
}

// LoadDevice returns the device record for deviceID, if stored.
func (s *FileKeyStore) LoadDevice(deviceID string) (domain.DeviceRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return domain.DeviceRecord{}, false, errs.ErrNotInitialized
	}
	devices := map[string]domain.DeviceRecord{}
	if err := s.read(devicesFilename, &devices); err != nil {
		return domain.DeviceRecord{}, false, err
	}
	device, ok := devices[deviceID]
	return device, ok, nil
}

// ListDevices returns every device registered under userID.
func (s *FileKeyStore) ListDevices(userID domain.UserID) ([]domain.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil, errs.ErrNotInitialized
	}
	devices := map[string]domain.DeviceRecord{}
	if err := s.read(devicesFilename, &devices); err != nil {
		return nil, err
	}
	var out []domain.DeviceRecord
	for _, d := range devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

// DeleteDevice removes the device record for deviceID; idempotent.
func (s *FileKeyStore) DeleteDevice(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return errs.ErrNotInitialized
	}
	devices := map[string]domain.DeviceRecord{}
	if err := s.read(devicesFilename, &devices); err != nil {
		return err
	}
	if _, ok := devices[deviceID]; !ok {
		return nil
	}
	delete(devices, deviceID)
	return s.write(devicesFilename, devices)
}

// Stats returns the record counts per kind.
func (s *FileKeyStore) Stats() (domain.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return domain.StoreStats{}, errs.ErrNotInitialized
	}
	ids := map[domain.UserID]domain.IdentityKeyPair{}
	if err := s.read(identitiesFilename, &ids); err != nil {
		return domain.StoreStats{}, err
	}
	sessions := map[domain.ConversationID]domain.SessionKey{}
	if err := s.read(sessionsFilename, &sessions); err != nil {
		return domain.StoreStats{}, err
	}
	devices := map[string]domain.DeviceRecord{}
	if err := s.read(devicesFilename, &devices); err != nil {
		return domain.StoreStats{}, err
	}
	return domain.StoreStats{
		Identities: len(ids),
		Sessions:   len(sessions),
		Devices:    len(devices),
	}, nil
}

func (s *FileKeyStore) read(name string, out any) error {
	if err := readJSON(filepath.Join(s.dir, name), out); err != nil {
		return errs.Wrap(errs.KindIO, "read "+name, err)
	}
	return nil
}

func (s *FileKeyStore) write(name string, v any) error {
	if err := writeJSON(filepath.Join(s.dir, name), v, fileMode); err != nil {
		return errs.Wrap(errs.KindIO, "write "+name, err)
	}
	return nil
}

// Compile-time assertion that FileKeyStore implements domain.KeyStore.
var _ domain.KeyStore = (*FileKeyStore)(nil)
