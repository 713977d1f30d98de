package pairstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

// HTTPStore relays pairing records through the keywardd pairing endpoints.
// The server derives the record TTL from ExpiresAt, so the ttl argument to
// Put only needs to agree with the record.
type HTTPStore struct {
	base string
	http *http.Client
}

// NewHTTPStore returns a pairing store client against base. A nil httpClient
// falls back to http.DefaultClient.
func NewHTTPStore(base string, httpClient *http.Client) *HTTPStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPStore{base: base, http: httpClient}
}

// Put uploads request under its (user, code) pair.
func (s *HTTPStore) Put(ctx context.Context, request domain.PairingRequest, _ time.Duration) error {
	body, err := json.Marshal(request)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "encode pairing request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.recordURL(request.UserID, request.PairingCode), bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, "pairing relay unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errs.Newf(errs.KindNetwork, "pairing upload failed: %s", resp.Status)
	}
	return nil
}

// Get fetches the record for (userID, code); ok is false when none exists.
func (s *HTTPStore) Get(ctx context.Context, userID domain.UserID, code string) (domain.PairingRequest, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.recordURL(userID, code), nil)
	if err != nil {
		return domain.PairingRequest{}, false, errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return domain.PairingRequest{}, false, errs.Wrap(errs.KindNetwork, "pairing relay unreachable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.PairingRequest{}, false, nil
	default:
		return domain.PairingRequest{}, false, errs.Newf(errs.KindNetwork, "pairing fetch failed: %s", resp.Status)
	}
	var record domain.PairingRequest
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return domain.PairingRequest{}, false, errs.Wrap(errs.KindNetwork, "decode pairing record", err)
	}
	return record, true, nil
}

// Delete removes the record for (userID, code); idempotent.
func (s *HTTPStore) Delete(ctx context.Context, userID domain.UserID, code string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.recordURL(userID, code), nil)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindNetwork, "pairing relay unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return errs.Newf(errs.KindNetwork, "pairing delete failed: %s", resp.Status)
	}
	return nil
}

// List returns all live records for userID.
func (s *HTTPStore) List(ctx context.Context, userID domain.UserID) ([]domain.PairingRequest, error) {
	u := fmt.Sprintf("%s/v1/pairings/%s", s.base, url.PathEscape(string(userID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "build request", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "pairing relay unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Newf(errs.KindNetwork, "pairing list failed: %s", resp.Status)
	}
	var records []domain.PairingRequest
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "decode pairing list", err)
	}
	return records, nil
}

func (s *HTTPStore) recordURL(userID domain.UserID, code string) string {
	return fmt.Sprintf("%s/v1/pairings/%s/%s", s.base, url.PathEscape(string(userID)), url.PathEscape(code))
}

// Compile-time assertion that HTTPStore implements domain.PairingStore.
var _ domain.PairingStore = (*HTTPStore)(nil)
