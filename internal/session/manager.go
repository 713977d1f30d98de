// Package session orchestrates identity lifecycle and per-conversation
// message encryption on top of the key store, the directory, and the
// optional backup collaborators.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/errs"
	"keyward/internal/util/memzero"
)

// Manager implements identity initialization, session establishment,
// message encryption/decryption, and security-code generation.
//
// There is no process-global state: a Manager is constructed with explicit
// dependencies and any number of managers may coexist. The backup service
// and password supplier are optional and declared at construction, never
// probed at runtime.
type Manager struct {
	keys      domain.KeyStore
	directory domain.Directory
	backups   domain.BackupService    // optional
	passwords domain.PasswordSupplier // optional
	log       *slog.Logger

	// convLocks serializes the read-derive-encrypt-increment sequence per
	// conversation so two in-flight encryptions can never reuse a counter.
	mu        sync.Mutex
	convLocks map[domain.ConversationID]*sync.Mutex
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithBackup wires an encrypted backup service into the manager.
func WithBackup(b domain.BackupService) Option {
	return func(m *Manager) { m.backups = b }
}

// WithPasswords wires a backup password supplier into the manager.
func WithPasswords(p domain.PasswordSupplier) Option {
	return func(m *Manager) { m.passwords = p }
}

// WithLogger replaces the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a manager over the given key store and directory.
func NewManager(keys domain.KeyStore, directory domain.Directory, opts ...Option) *Manager {
	m := &Manager{
		keys:      keys,
		directory: directory,
		log:       slog.Default(),
		convLocks: make(map[domain.ConversationID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize returns the local identity for userID, creating it if needed.
//
// Order of preference: an identity already in the key store; a restore from
// the backup service when a backup exists and a password is obtainable; a
// freshly generated keypair. A fresh keypair is stored locally, its public
// half is published to the directory, and — when a password is available —
// a backup is created best-effort: backup failure is logged at warn level
// and never fails key generation.
func (m *Manager) Initialize(ctx context.Context, userID domain.UserID) (domain.IdentityKeyPair, error) {
	if userID == "" {
		return domain.IdentityKeyPair{}, errs.New(errs.KindInvalidArgument, "empty user id")
	}

	id, ok, err := m.keys.LoadIdentity(userID)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	if ok {
		return id, nil
	}

	if m.backups != nil {
		id, restored, err := m.restoreFromBackup(ctx, userID)
		if err != nil {
			return domain.IdentityKeyPair{}, err
		}
		if restored {
			return id, nil
		}
	}

	return m.generateIdentity(ctx, userID)
}

// restoreFromBackup attempts a backup restore. restored=false with a nil
// error means no backup exists or no password was obtainable, and the
// caller should fall through to key generation.
func (m *Manager) restoreFromBackup(ctx context.Context, userID domain.UserID) (domain.IdentityKeyPair, bool, error) {
	has, err := m.backups.HasBackup(ctx, userID)
	if err != nil {
		return domain.IdentityKeyPair{}, false, err
	}
	if !has || m.passwords == nil {
		return domain.IdentityKeyPair{}, false, nil
	}

	password, ok := m.passwords.Retrieve()
	if !ok {
		password, ok = m.passwords.Prompt("Enter your backup password to restore encryption keys")
	}
	if !ok {
		return domain.IdentityKeyPair{}, false, nil
	}

	id, err := m.backups.RestoreFromBackup(ctx, userID, password)
	if errors.Is(err, errs.ErrWrongPassword) {
		// One re-prompt; a second wrong password is surfaced to the caller.
		password, ok = m.passwords.Prompt("Wrong password, try again")
		if !ok {
			return domain.IdentityKeyPair{}, false, err
		}
		id, err = m.backups.RestoreFromBackup(ctx, userID, password)
	}
	if err != nil {
		return domain.IdentityKeyPair{}, false, err
	}

	id.UserID = userID
	if err := m.keys.SaveIdentity(id); err != nil {
		return domain.IdentityKeyPair{}, false, err
	}
	m.passwords.MarkUsedAndClear()
	m.log.Info("identity restored from backup", "user", userID)
	return id, true, nil
}

func (m *Manager) generateIdentity(ctx context.Context, userID domain.UserID) (domain.IdentityKeyPair, error) {
	pub, sec, err := crypto.GenerateIdentityKeyPair()
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	id := domain.IdentityKeyPair{
		UserID:    userID,
		PublicKey: pub,
		SecretKey: sec,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.keys.SaveIdentity(id); err != nil {
		return domain.IdentityKeyPair{}, err
	}
	if err := m.directory.UploadPublicKey(ctx, userID, pub); err != nil {
		// An unpublished identity must not survive: the next Initialize
		// would return it from the store without ever publishing.
		if delErr := m.keys.DeleteIdentity(userID); delErr != nil {
			m.log.Error("removing unpublished identity failed", "user", userID, "err", delErr)
		}
		return domain.IdentityKeyPair{}, err
	}

	if m.backups != nil && m.passwords != nil {
		if password, ok := m.passwords.Retrieve(); ok {
			if err := m.backups.CreateBackup(ctx, id, password); err != nil {
				// Losing only the backup, not the live key, is recoverable.
				m.log.Warn("backup creation failed", "user", userID, "err", err)
			} else {
				m.passwords.MarkUsedAndClear()
			}
		}
	}

	m.log.Info("identity generated", "user", userID)
	return id, nil
}

// UploadPublicKey publishes a public key to the directory.
func (m *Manager) UploadPublicKey(ctx context.Context, userID domain.UserID, publicKey domain.PublicKey) error {
	return m.directory.UploadPublicKey(ctx, userID, publicKey)
}

// FetchPublicKey looks up a user's published key in the directory.
func (m *Manager) FetchPublicKey(ctx context.Context, userID domain.UserID) (domain.PublicKey, error) {
	return m.directory.FetchPublicKey(ctx, userID)
}

// EstablishSession derives and stores the shared secret for a conversation
// with peerUserID. Idempotent: an existing session is left untouched.
func (m *Manager) EstablishSession(ctx context.Context, localUserID domain.UserID, conversationID domain.ConversationID, peerUserID domain.UserID) error {
	if _, ok, err := m.keys.LoadSession(conversationID); err != nil {
		return err
	} else if ok {
		return nil
	}

	id, ok, err := m.keys.LoadIdentity(localUserID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Newf(errs.KindNotFound, "no local identity for %s; initialize first", localUserID)
	}

	peerKey, err := m.directory.FetchPublicKey(ctx, peerUserID)
	if err != nil {
		return err
	}
	secret, err := crypto.DeriveSharedSecret(id.SecretKey, peerKey)
	if err != nil {
		return err
	}

	session := domain.SessionKey{
		ConversationID: conversationID,
		SharedSecret:   secret,
		MessageCounter: 0,
	}
	if err := m.keys.SaveSession(session); err != nil {
		return err
	}
	m.log.Info("session established", "conversation", conversationID, "peer", peerUserID)
	return nil
}

// EncryptMessage seals plaintext for the conversation. The returned counter
// is the value used for key derivation (the pre-increment value); the
// stored counter is advanced before returning.
func (m *Manager) EncryptMessage(conversationID domain.ConversationID, plaintext []byte) (domain.EncryptedMessage, error) {
	if len(strings.TrimSpace(string(plaintext))) == 0 {
		return domain.EncryptedMessage{}, errs.New(errs.KindInvalidArgument, "empty plaintext")
	}

	lock := m.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	session, ok, err := m.keys.LoadSession(conversationID)
	if err != nil {
		return domain.EncryptedMessage{}, err
	}
	if !ok {
		return domain.EncryptedMessage{}, errs.Newf(errs.KindNotFound, "no session for conversation %s", conversationID)
	}

	counter := session.MessageCounter
	key := crypto.DeriveMessageKey(session.SharedSecret, counter)
	defer memzero.Zero32(&key)

	ciphertext, nonce, err := crypto.Encrypt(plaintext, key[:])
	if err != nil {
		return domain.EncryptedMessage{}, err
	}

	session.MessageCounter = counter + 1
	if err := m.keys.SaveSession(session); err != nil {
		return domain.EncryptedMessage{}, err
	}

	return domain.EncryptedMessage{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Counter:    counter,
	}, nil
}

// DecryptMessage opens a sealed message using the sender's counter carried
// in the envelope, independent of the local counter state.
func (m *Manager) DecryptMessage(conversationID domain.ConversationID, msg domain.EncryptedMessage) ([]byte, error) {
	session, ok, err := m.keys.LoadSession(conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "no session for conversation %s", conversationID)
	}

	key := crypto.DeriveMessageKey(session.SharedSecret, msg.Counter)
	defer memzero.Zero32(&key)

	return crypto.Decrypt(msg.Ciphertext, msg.Nonce, key[:])
}

// SecurityCode renders the out-of-band verification code for the local
// user and a peer. Keys are ordered by lexicographic user-id comparison so
// both parties compute an identical string.
func (m *Manager) SecurityCode(ctx context.Context, localUserID, peerUserID domain.UserID) (string, error) {
	localKey, err := m.directory.FetchPublicKey(ctx, localUserID)
	if err != nil {
		return "", err
	}
	peerKey, err := m.directory.FetchPublicKey(ctx, peerUserID)
	if err != nil {
		return "", err
	}
	if localUserID < peerUserID {
		return crypto.SecurityCode(localKey, peerKey), nil
	}
	return crypto.SecurityCode(peerKey, localKey), nil
}

// DeleteSession removes the conversation's session key; idempotent.
func (m *Manager) DeleteSession(conversationID domain.ConversationID) error {
	return m.keys.DeleteSession(conversationID)
}

// Session returns the stored session record for a conversation.
func (m *Manager) Session(conversationID domain.ConversationID) (domain.SessionKey, bool, error) {
	return m.keys.LoadSession(conversationID)
}

// Stats reports the read-only record counts from the key store.
func (m *Manager) Stats() (domain.StoreStats, error) {
	return m.keys.Stats()
}

func (m *Manager) conversationLock(conversationID domain.ConversationID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.convLocks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		m.convLocks[conversationID] = lock
	}
	return lock
}
