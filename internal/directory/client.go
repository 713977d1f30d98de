// Package directory implements the HTTP client for the public-key
// directory exposed by keywardd.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// keyRecord is the wire form of one directory entry.
type keyRecord struct {
	UserID    string `json:"user_id"`
	PublicKey []byte `json:"public_key"`
}

// HTTPClient talks to the keywardd directory endpoints.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient returns a directory client against base. A nil httpClient
// falls back to http.DefaultClient.
func NewHTTPClient(base string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{base: base, http: httpClient}
}

// UploadPublicKey publishes userID's identity public key.
func (c *HTTPClient) UploadPublicKey(ctx context.Context, userID domain.UserID, publicKey domain.PublicKey) error {
	body, err := json.Marshal(keyRecord{UserID: userID.String(), PublicKey: publicKey.Slice()})
	if err != nil {
		return errs.Wrap(errs.KindInternal, "marshal key record", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.keyURL(userID), bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, "directory unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errs.Newf(errs.KindNetwork, "publish key failed: %s", resp.Status)
	}
	return nil
}

// FetchPublicKey looks up userID's published key. Returns a NotFound error
// when the user has not set up encryption.
func (c *HTTPClient) FetchPublicKey(ctx context.Context, userID domain.UserID) (domain.PublicKey, error) {
	var pub domain.PublicKey

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.keyURL(userID), nil)
	if err != nil {
		return pub, errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return pub, errs.Wrap(errs.KindNetwork, "directory unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return pub, errs.Newf(errs.KindNotFound, "user %s has not set up encryption", userID)
	default:
		return pub, errs.Newf(errs.KindNetwork, "fetch key failed: %s", resp.Status)
	}

	var rec keyRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return pub, errs.Wrap(errs.KindNetwork, "decode key record", err)
	}
	if len(rec.PublicKey) != domain.KeySize {
		return pub, errs.Newf(errs.KindInvalidKey, "directory returned %d-byte key", len(rec.PublicKey))
	}
	copy(pub[:], rec.PublicKey)
	return pub, nil
}

func (c *HTTPClient) keyURL(userID domain.UserID) string {
	return fmt.Sprintf("%s/v1/keys/%s", c.base, url.PathEscape(userID.String()))
}

// Compile-time assertion that HTTPClient implements domain.Directory.
var _ domain.Directory = (*HTTPClient)(nil)
