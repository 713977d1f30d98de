package domain

import (
	"context"
	"time"
)

// KeyStore is the local persistent store for identity, session and device
// records. Implementations must be safe for concurrent use, must make each
// Save/Delete atomic per record, and must return a NotInitialized error
// before Open has succeeded.
type KeyStore interface {
	Open() error

	SaveIdentity(id IdentityKeyPair) error
	LoadIdentity(userID UserID) (IdentityKeyPair, bool, error)
	DeleteIdentity(userID UserID) error

	SaveSession(session SessionKey) error
	LoadSession(conversationID ConversationID) (SessionKey, bool, error)
	DeleteSession(conversationID ConversationID) error

	SaveDevice(device DeviceRecord) error
	LoadDevice(deviceID string) (DeviceRecord, bool, error)
	ListDevices(userID UserID) ([]DeviceRecord, error)
	DeleteDevice(deviceID string) error

	Stats() (StoreStats, error)
}

// Directory is the network key-value service that maps users to their
// published identity public keys.
type Directory interface {
	UploadPublicKey(ctx context.Context, userID UserID, publicKey PublicKey) error
	// FetchPublicKey returns a NotFound error when the user has not set up
	// encryption.
	FetchPublicKey(ctx context.Context, userID UserID) (PublicKey, error)
}

// BackupService stores and restores passphrase-encrypted identity backups.
// Restore returns a WrongPassword error when the passphrase does not open
// the backup, distinct from transport or format failures.
type BackupService interface {
	HasBackup(ctx context.Context, userID UserID) (bool, error)
	RestoreFromBackup(ctx context.Context, userID UserID, password string) (IdentityKeyPair, error)
	CreateBackup(ctx context.Context, id IdentityKeyPair, password string) error
}

// PasswordSupplier provides the backup passphrase. Retrieve returns a
// remembered passphrase without user interaction; Prompt may ask the user.
// Both return ok=false when no passphrase is obtainable.
type PasswordSupplier interface {
	Retrieve() (password string, ok bool)
	Prompt(message string) (password string, ok bool)
	MarkUsedAndClear()
}

// PairingStore is the remote ephemeral store for pairing requests, keyed by
// (user, code). Implementations enforce the record TTL server-side where
// possible; callers still check ExpiresAt.
type PairingStore interface {
	Put(ctx context.Context, request PairingRequest, ttl time.Duration) error
	Get(ctx context.Context, userID UserID, code string) (PairingRequest, bool, error)
	Delete(ctx context.Context, userID UserID, code string) error
	List(ctx context.Context, userID UserID) ([]PairingRequest, error)
}

// BlobStore holds opaque encrypted blobs by path.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}

// UploadDecision is the policy verdict for an attachment upload.
type UploadDecision struct {
	Allowed      bool   `json:"allowed"`
	MaxSizeBytes int64  `json:"max_size_bytes"`
	Reason       string `json:"reason,omitempty"`
}

// UploadPolicy decides whether the caller may upload attachments and how
// large they may be.
type UploadPolicy interface {
	CanUpload(ctx context.Context) (UploadDecision, error)
}
