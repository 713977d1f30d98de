// Package blob provides BlobStore implementations: an HTTP client against
// keywardd and a filesystem store used locally and by the server.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// HTTPClient stores blobs via the keywardd blob endpoints.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient returns a blob client against base. A nil httpClient falls
// back to http.DefaultClient.
func NewHTTPClient(base string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{base: base, http: httpClient}
}

// Put uploads data under path.
func (c *HTTPClient) Put(ctx context.Context, path string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.blobURL(path), bytes.NewReader(data))
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, "blob store unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errs.Newf(errs.KindNetwork, "blob upload failed: %s", resp.Status)
	}
	return nil
}

// Get downloads the blob at path.
func (c *HTTPClient) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.blobURL(path), nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "blob store unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errs.Newf(errs.KindNotFound, "no blob at %s", path)
	default:
		return nil, errs.Newf(errs.KindNetwork, "blob download failed: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "read blob body", err)
	}
	return data, nil
}

// Remove deletes the blob at path; idempotent.
func (c *HTTPClient) Remove(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.blobURL(path), nil)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, "blob store unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return errs.Newf(errs.KindNetwork, "blob delete failed: %s", resp.Status)
	}
	return nil
}

// blobURL escapes each path segment separately so slashes keep their
// routing meaning on the server side.
func (c *HTTPClient) blobURL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/v1/blobs/%s", c.base, strings.Join(segments, "/"))
}

// Compile-time assertion that HTTPClient implements domain.BlobStore.
var _ domain.BlobStore = (*HTTPClient)(nil)
