// Package domain defines the data model and collaborator interfaces shared
// by the keyward core.
//
// Contents
//
//   - Fixed-size key types for Curve25519 material (PublicKey, SecretKey,
//     SharedSecret) to avoid accidental reallocation of secrets
//   - Persistent records: IdentityKeyPair, SessionKey, DeviceRecord
//   - Wire records: EncryptedMessage, PairingRequest, WrappedFileKey,
//     AttachmentMeta
//   - The KeyStore interface and the external collaborator interfaces
//     (Directory, BackupService, PasswordSupplier, PairingStore, BlobStore,
//     UploadPolicy)
package domain
