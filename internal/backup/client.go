package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// HTTPClient talks to a keywardd backup endpoint. Blobs are sealed and
// opened locally; the server only ever sees ciphertext.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient returns a backup client against base. A nil httpClient
// falls back to http.DefaultClient.
func NewHTTPClient(base string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{base: base, http: httpClient}
}

// HasBackup reports whether a backup blob exists for userID.
func (c *HTTPClient) HasBackup(ctx context.Context, userID domain.UserID) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.backupURL(userID), nil)
	if err != nil {
		return false, errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, errs.Wrap(errs.KindNetwork, "backup service unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, errs.Newf(errs.KindNetwork, "backup check failed: %s", resp.Status)
	}
}

// RestoreFromBackup downloads and opens the backup blob for userID.
// A wrong passphrase surfaces as a WrongPassword error, distinct from
// transport failures.
func (c *HTTPClient) RestoreFromBackup(ctx context.Context, userID domain.UserID, password string) (domain.IdentityKeyPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.backupURL(userID), nil)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindNetwork, "backup service unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.IdentityKeyPair{}, errs.Newf(errs.KindNotFound, "no backup for user %s", userID)
	default:
		return domain.IdentityKeyPair{}, errs.Newf(errs.KindNetwork, "backup download failed: %s", resp.Status)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.IdentityKeyPair{}, errs.Wrap(errs.KindNetwork, "read backup body", err)
	}
	return Open(blob, password)
}

// CreateBackup seals the identity under password and uploads it.
func (c *HTTPClient) CreateBackup(ctx context.Context, id domain.IdentityKeyPair, password string) error {
	blob, err := Seal(id, password)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.backupURL(id.UserID), bytes.NewReader(blob))
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, "backup service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errs.Newf(errs.KindNetwork, "backup upload failed: %s", resp.Status)
	}
	return nil
}

func (c *HTTPClient) backupURL(userID domain.UserID) string {
	return fmt.Sprintf("%s/v1/backups/%s", c.base, url.PathEscape(userID.String()))
}

// Compile-time assertion that HTTPClient implements domain.BackupService.
var _ domain.BackupService = (*HTTPClient)(nil)
