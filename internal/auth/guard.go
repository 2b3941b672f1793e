// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Guard cache sizing.
const (
	DefaultGuardCacheCapacity = 10_000
	guardCacheFallbackTTL     = 10 * time.Minute
)

// Guard makes a confirmation token redeemable at most once per holder.
//
// Committed redemptions are cached in memory until the token expires so a
// replay is rejected without touching the store. The store stays the source
// of truth: a cache miss always falls through to it.
type Guard struct {
	blacklist BlacklistRepository
	redeemed  *ttlcache.Cache[string, struct{}]
	now       func() time.Time
}

// NewGuard creates a Guard. capacity bounds the redemption cache; zero uses
// DefaultGuardCacheCapacity.
func NewGuard(blacklist BlacklistRepository, capacity uint64) (*Guard, error) {
	if blacklist == nil {
		return nil, oops.Errorf("blacklist repository is required")
	}
	if capacity == 0 {
		capacity = DefaultGuardCacheCapacity
	}
	return &Guard{
		blacklist: blacklist,
		redeemed: ttlcache.New[string, struct{}](
			ttlcache.WithCapacity[string, struct{}](capacity),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
		now: time.Now,
	}, nil
}

func guardKey(holderID ulid.ULID, tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return holderID.String() + ":" + hex.EncodeToString(sum[:])
}

// IsRedeemed reports whether the holder already redeemed tok.
func (g *Guard) IsRedeemed(ctx context.Context, holderID ulid.ULID, tok string) (bool, error) {
	key := guardKey(holderID, tok)
	if g.redeemed.Get(key) != nil {
		return true, nil
	}
	found, err := g.blacklist.Exists(ctx, holderID, tok)
	if err != nil {
		return false, oops.Code("GUARD_LOOKUP_FAILED").With("holder_id", holderID.String()).Wrap(err)
	}
	if found {
		g.redeemed.Set(key, struct{}{}, guardCacheFallbackTTL)
	}
	return found, nil
}

// Redeem records that the holder redeemed tok. A concurrent redemption of
// the same token loses on the store's uniqueness and is reported as
// already used.
func (g *Guard) Redeem(ctx context.Context, holderID ulid.ULID, tok string, issuedAt, expiresAt time.Time) error {
	entry, err := NewBlacklistedToken(holderID, tok, issuedAt, expiresAt)
	if err != nil {
		return oops.Code("GUARD_REDEEM_FAILED").Wrap(err)
	}
	err = g.blacklist.Insert(ctx, entry)
	if errors.Is(err, ErrAlreadyExists) {
		return oops.Code(string(KindRequestAlreadyUsed)).
			With("holder_id", holderID.String()).
			Errorf("request already used")
	}
	if err != nil {
		return oops.Code("GUARD_REDEEM_FAILED").With("holder_id", holderID.String()).Wrap(err)
	}
	return nil
}

// remember caches a redemption once its transaction has committed.
func (g *Guard) remember(holderID ulid.ULID, tok string, expiresAt time.Time) {
	ttl := expiresAt.Sub(g.now())
	if ttl <= 0 {
		return
	}
	g.redeemed.Set(guardKey(holderID, tok), struct{}{}, ttl)
}
