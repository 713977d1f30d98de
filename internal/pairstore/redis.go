// Package pairstore provides the ephemeral stores for pairing requests:
// a redis-backed client with server-side TTL and an in-memory store for
// tests and single-process setups.
package pairstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"keyward/internal/domain"
	"keyward/internal/errs"
)

const pairingPrefix = "pairing:"

// RedisStore keeps pairing requests in redis. Records are written with
// SETEX so redis evicts them at the TTL even if no client ever sweeps.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Put stores the request under (user, code) with the given TTL.
func (s *RedisStore) Put(ctx context.Context, request domain.PairingRequest, ttl time.Duration) error {
	data, err := json.Marshal(request)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "marshal pairing request", err)
	}
	if err := s.rdb.Set(ctx, pairingKey(request.UserID, request.PairingCode), data, ttl).Err(); err != nil {
		return errs.Wrap(errs.KindNetwork, "store pairing request", err)
	}
	return nil
}

// Get returns the request for (user, code), if present.
func (s *RedisStore) Get(ctx context.Context, userID domain.UserID, code string) (domain.PairingRequest, bool, error) {
	data, err := s.rdb.Get(ctx, pairingKey(userID, code)).Bytes()
	if err == redis.Nil {
		return domain.PairingRequest{}, false, nil
	}
	if err != nil {
		return domain.PairingRequest{}, false, errs.Wrap(errs.KindNetwork, "fetch pairing request", err)
	}
	var request domain.PairingRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return domain.PairingRequest{}, false, errs.Wrap(errs.KindInternal, "decode pairing request", err)
	}
	return request, true, nil
}

// Delete removes the record for (user, code); idempotent.
func (s *RedisStore) Delete(ctx context.Context, userID domain.UserID, code string) error {
	if err := s.rdb.Del(ctx, pairingKey(userID, code)).Err(); err != nil {
		return errs.Wrap(errs.KindNetwork, "delete pairing request", err)
	}
	return nil
}

// List returns every live pairing request for userID.
func (s *RedisStore) List(ctx context.Context, userID domain.UserID) ([]domain.PairingRequest, error) {
	var out []domain.PairingRequest
	iter := s.rdb.Scan(ctx, 0, pairingKey(userID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindNetwork, "fetch pairing request", err)
		}
		var request domain.PairingRequest
		if err := json.Unmarshal(data, &request); err != nil {
			return nil, errs.Wrap(errs.KindInternal, "decode pairing request", err)
		}
		out = append(out, request)
	}
	if err := iter.Err(); err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "scan pairing requests", err)
	}
	return out, nil
}

// pairingKey hex-encodes the user so an id containing ':' or glob
// metacharacters can neither collide with another user's keys nor widen the
// List scan pattern.
func pairingKey(userID domain.UserID, code string) string {
	return fmt.Sprintf("%s%s:%s", pairingPrefix, hex.EncodeToString([]byte(userID)), code)
}

// Compile-time assertion that RedisStore implements domain.PairingStore.
var _ domain.PairingStore = (*RedisStore)(nil)
