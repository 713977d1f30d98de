// Package server implements keywardd: the public-key directory, encrypted
// backup storage, pairing-record relay, blob store and upload policy
// consumed by the keyward client.
package server

import "context"

// DirectoryStore persists published identity public keys.
type DirectoryStore interface {
	SavePublicKey(ctx context.Context, userID string, publicKey []byte) error
	PublicKey(ctx context.Context, userID string) ([]byte, bool, error)
}

// BackupStore persists encrypted backup blobs. The server never sees
// plaintext key material; blobs are sealed client-side.
type BackupStore interface {
	SaveBackup(ctx context.Context, userID string, blob []byte) error
	Backup(ctx context.Context, userID string) ([]byte, bool, error)
}
