package domain

import "time"

// IdentityKeyPair holds a user's long-term Curve25519 keys on one device.
// Created on first initialization or restored from backup; never mutated.
type IdentityKeyPair struct {
	UserID    UserID    `json:"user_id"`
	PublicKey PublicKey `json:"public_key"`
	SecretKey SecretKey `json:"secret_key"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionKey is the per-conversation shared secret plus the sender-side
// message counter. The counter only ever increases.
type SessionKey struct {
	ConversationID ConversationID `json:"conversation_id"`
	SharedSecret   SharedSecret   `json:"shared_secret"`
	MessageCounter uint64         `json:"message_counter"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DeviceRecord describes one device registered under a user.
type DeviceRecord struct {
	DeviceID   string    `json:"device_id"`
	UserID     UserID    `json:"user_id"`
	DeviceName string    `json:"device_name"`
	PublicKey  PublicKey `json:"public_key"`
	IsPrimary  bool      `json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
}

// PairingRequest is the short-lived record that carries identity key
// material to a new device. Both key fields are AEAD ciphertexts under a
// key derived from the pairing code; see internal/pairing.
type PairingRequest struct {
	UserID             UserID    `json:"user_id"`
	PairingCode        string    `json:"pairing_code"`
	EncryptedPublicKey []byte    `json:"encrypted_public_key"`
	PublicKeyNonce     []byte    `json:"public_key_nonce"`
	EncryptedSecretKey []byte    `json:"encrypted_secret_key"`
	SecretKeyNonce     []byte    `json:"secret_key_nonce"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// Expired reports whether the request is past its deadline at now.
func (r PairingRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// EncryptedMessage is one sealed message plus the derivation inputs the
// receiver needs: the AEAD nonce and the sender's counter at send time.
type EncryptedMessage struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Counter    uint64 `json:"counter"`
}

// WrappedFileKey is a random per-file key sealed under a conversation's
// session secret.
type WrappedFileKey struct {
	EncryptedKey []byte `json:"encrypted_key"`
	KeyNonce     []byte `json:"key_nonce"`
}

// AttachmentMeta records where an uploaded attachment lives and how to
// recover its plaintext. The blob itself is stored as nonce || ciphertext.
type AttachmentMeta struct {
	ConversationID ConversationID `json:"conversation_id"`
	Path           string         `json:"path"`
	Name           string         `json:"name"`
	Size           int64          `json:"size"`
	WrappedKey     WrappedFileKey `json:"wrapped_key"`
}

// StoreStats are the read-only record counts exposed to the application.
type StoreStats struct {
	Identities int `json:"identities"`
	Sessions   int `json:"sessions"`
	Devices    int `json:"devices"`
}
