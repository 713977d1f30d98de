// Package policy implements the client for the attachment upload policy
// endpoint exposed by keywardd.
package policy

import (
	"context"
	"encoding/json"
	"net/http"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// HTTPClient fetches upload decisions from keywardd.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient returns a policy client against base. A nil httpClient
// falls back to http.DefaultClient.
func NewHTTPClient(base string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{base: base, http: httpClient}
}

// CanUpload asks the server whether the caller may upload and how large
// attachments may be.
func (c *HTTPClient) CanUpload(ctx context.Context) (domain.UploadDecision, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/policy", nil)
	if err != nil {
		return domain.UploadDecision{}, errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.UploadDecision{}, errs.Wrap(errs.KindNetwork, "policy service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.UploadDecision{}, errs.Newf(errs.KindNetwork, "policy fetch failed: %s", resp.Status)
	}

	var decision domain.UploadDecision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return domain.UploadDecision{}, errs.Wrap(errs.KindNetwork, "decode policy", err)
	}
	return decision, nil
}

// Compile-time assertion that HTTPClient implements domain.UploadPolicy.
var _ domain.UploadPolicy = (*HTTPClient)(nil)
