package domain

// KeySize is the byte length of every Curve25519 key and derived secret.
const KeySize = 32

// NonceSize is the byte length of an XChaCha20-Poly1305 nonce.
const NonceSize = 24

// PublicKey is a Curve25519 public key.
type PublicKey [KeySize]byte

// Slice returns the key as a []byte.
func (p PublicKey) Slice() []byte { return p[:] }

// SecretKey is a Curve25519 private scalar.
type SecretKey [KeySize]byte

// Slice returns the key as a []byte.
func (k SecretKey) Slice() []byte { return k[:] }

// SharedSecret is an X25519 agreement output, the root of all message keys
// for one conversation.
type SharedSecret [KeySize]byte

// Slice returns the secret as a []byte.
func (s SharedSecret) Slice() []byte { return s[:] }

// UserID identifies a directory-registered user.
type UserID string

// String returns the string form of the user identifier.
func (u UserID) String() string { return string(u) }

// ConversationID identifies a pairwise conversation.
type ConversationID string

// String returns the string form of the conversation identifier.
func (c ConversationID) String() string { return string(c) }
