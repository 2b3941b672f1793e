// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redisstore keeps the single-use ledger in Redis. Receipts are keys
// that expire with their token, so nothing needs sweeping.
package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
)

// DefaultPrefix namespaces every key written by the ledger.
const DefaultPrefix = "authengine"

// minReceiptTTL keeps receipts of already expired tokens long enough to beat
// a racing redemption.
const minReceiptTTL = time.Minute

// BlacklistRepository implements auth.BlacklistRepository on Redis.
type BlacklistRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewBlacklistRepository creates a ledger over client. An empty prefix uses
// DefaultPrefix.
func NewBlacklistRepository(client redis.UniversalClient, prefix string) (*BlacklistRepository, error) {
	if client == nil {
		return nil, oops.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &BlacklistRepository{client: client, prefix: prefix, now: time.Now}, nil
}

// key hashes the token so raw tokens never land in Redis.
func (r *BlacklistRepository) key(holderID ulid.ULID, tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return r.prefix + ":blacklist:" + holderID.String() + ":" + hex.EncodeToString(sum[:])
}

// Exists reports whether the holder already redeemed tok.
func (r *BlacklistRepository) Exists(ctx context.Context, holderID ulid.ULID, tok string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(holderID, tok)).Result()
	if err != nil {
		return false, oops.Code("BLACKLIST_LOOKUP_FAILED").With("holder_id", holderID.String()).Wrap(err)
	}
	return n > 0, nil
}

// Insert records a redemption with SET NX, which is what makes it
// single-use across processes.
func (r *BlacklistRepository) Insert(ctx context.Context, entry *auth.BlacklistedToken) error {
	ttl := entry.ExpiresAt.Sub(r.now())
	if ttl < minReceiptTTL {
		ttl = minReceiptTTL
	}
	ok, err := r.client.SetNX(ctx, r.key(entry.HolderID, entry.Token), entry.CreatedAt.Unix(), ttl).Result()
	if err != nil {
		return oops.Code("BLACKLIST_INSERT_FAILED").With("holder_id", entry.HolderID.String()).Wrap(err)
	}
	if !ok {
		return oops.Code("BLACKLIST_DUPLICATE").With("holder_id", entry.HolderID.String()).Wrap(auth.ErrAlreadyExists)
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires receipts on its own.
func (r *BlacklistRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping checks the connection.
func (r *BlacklistRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return oops.Code("REDIS_UNREACHABLE").Wrap(err)
	}
	return nil
}

var _ auth.BlacklistRepository = (*BlacklistRepository)(nil)
