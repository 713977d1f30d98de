// Package attachment implements per-file encryption: each file gets a
// random key, the file key is wrapped under the owning conversation's
// session secret, and the blob is stored as nonce || ciphertext.
package attachment

import (
	"context"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/errs"
	"keyward/internal/util/memzero"
)

// sessionSource is the slice of the session manager the attachment service
// needs: the current session record per conversation.
type sessionSource interface {
	Session(conversationID domain.ConversationID) (domain.SessionKey, bool, error)
}

// Service encrypts, wraps, uploads and recovers file attachments.
type Service struct {
	sessions sessionSource
	blobs    domain.BlobStore
	policy   domain.UploadPolicy
	log      *slog.Logger
}

// NewService returns an attachment service. policy may be nil, in which
// case uploads are not size- or permission-checked locally.
func NewService(sessions sessionSource, blobs domain.BlobStore, policy domain.UploadPolicy, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{sessions: sessions, blobs: blobs, policy: policy, log: log}
}

// GenerateFileKey returns a fresh random 32-byte file key.
func GenerateFileKey() ([]byte, error) {
	return crypto.RandomBytes(domain.KeySize)
}

// EncryptFile seals file data under key.
func EncryptFile(data, key []byte) (ciphertext, nonce []byte, err error) {
	return crypto.Encrypt(data, key)
}

// DecryptFile opens file data sealed by EncryptFile.
func DecryptFile(ciphertext, nonce, key []byte) ([]byte, error) {
	return crypto.Decrypt(ciphertext, nonce, key)
}

// WrapFileKey seals fileKey under the conversation's current session
// secret. Fails with NotFound when no session exists and InvalidKeyType
// when the stored secret is malformed.
func (s *Service) WrapFileKey(fileKey []byte, conversationID domain.ConversationID) (domain.WrappedFileKey, error) {
	secret, err := s.sessionSecret(conversationID)
	if err != nil {
		return domain.WrappedFileKey{}, err
	}
	defer memzero.Zero(secret)

	encrypted, nonce, err := crypto.Encrypt(fileKey, secret)
	if err != nil {
		return domain.WrappedFileKey{}, err
	}
	return domain.WrappedFileKey{EncryptedKey: encrypted, KeyNonce: nonce}, nil
}

// UnwrapFileKey recovers a file key wrapped for conversationID. Unwrapping
// with the wrong conversation's session fails with AuthFailure.
func (s *Service) UnwrapFileKey(wrapped domain.WrappedFileKey, conversationID domain.ConversationID) ([]byte, error) {
	secret, err := s.sessionSecret(conversationID)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(secret)

	return crypto.Decrypt(wrapped.EncryptedKey, wrapped.KeyNonce, secret)
}

// Upload policy-checks, encrypts, wraps and stores a file, returning the
// metadata needed to recover it.
func (s *Service) Upload(ctx context.Context, conversationID domain.ConversationID, name string, data []byte) (domain.AttachmentMeta, error) {
	if len(data) == 0 {
		return domain.AttachmentMeta{}, errs.New(errs.KindInvalidArgument, "empty attachment")
	}
	if s.policy != nil {
		decision, err := s.policy.CanUpload(ctx)
		if err != nil {
			return domain.AttachmentMeta{}, err
		}
		if !decision.Allowed {
			return domain.AttachmentMeta{}, errs.Newf(errs.KindInvalidArgument, "upload not allowed: %s", decision.Reason)
		}
		if decision.MaxSizeBytes > 0 && int64(len(data)) > decision.MaxSizeBytes {
			return domain.AttachmentMeta{}, errs.Newf(errs.KindInvalidArgument,
				"attachment is %d bytes, limit is %d", len(data), decision.MaxSizeBytes)
		}
	}

	fileKey, err := GenerateFileKey()
	if err != nil {
		return domain.AttachmentMeta{}, err
	}
	defer memzero.Zero(fileKey)

	ciphertext, nonce, err := EncryptFile(data, fileKey)
	if err != nil {
		return domain.AttachmentMeta{}, err
	}
	wrapped, err := s.WrapFileKey(fileKey, conversationID)
	if err != nil {
		return domain.AttachmentMeta{}, err
	}

	blobPath := path.Join("attachments", conversationID.String(), uuid.NewString())
	blob := make([]byte, 0, len(nonce)+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	if err := s.blobs.Put(ctx, blobPath, blob); err != nil {
		return domain.AttachmentMeta{}, err
	}

	s.log.Info("attachment uploaded", "conversation", conversationID, "path", blobPath, "size", len(data))
	return domain.AttachmentMeta{
		ConversationID: conversationID,
		Path:           blobPath,
		Name:           name,
		Size:           int64(len(data)),
		WrappedKey:     wrapped,
	}, nil
}

// Download fetches the blob, unwraps the file key with the conversation's
// session, and decrypts the file.
func (s *Service) Download(ctx context.Context, meta domain.AttachmentMeta) ([]byte, error) {
	blob, err := s.blobs.Get(ctx, meta.Path)
	if err != nil {
		return nil, err
	}
	if len(blob) < domain.NonceSize {
		return nil, errs.Newf(errs.KindInvalidArgument, "blob %s too short to carry a nonce", meta.Path)
	}
	nonce, ciphertext := blob[:domain.NonceSize], blob[domain.NonceSize:]

	fileKey, err := s.UnwrapFileKey(meta.WrappedKey, meta.ConversationID)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(fileKey)

	return DecryptFile(ciphertext, nonce, fileKey)
}

func (s *Service) sessionSecret(conversationID domain.ConversationID) ([]byte, error) {
	session, ok, err := s.sessions.Session(conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "no session for conversation %s", conversationID)
	}
	if session.SharedSecret == (domain.SharedSecret{}) {
		return nil, errs.Newf(errs.KindInvalidKeyType, "session key for %s is malformed", conversationID)
	}
	out := make([]byte, domain.KeySize)
	copy(out, session.SharedSecret.Slice())
	return out, nil
}
