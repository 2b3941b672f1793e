// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// BlacklistedToken is the receipt that a single-use token was redeemed.
// Rows are immutable; the sweeper drops them once ExpiresAt has passed.
type BlacklistedToken struct {
	HolderID  ulid.ULID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewBlacklistedToken builds a receipt from the token's iat and exp claims.
func NewBlacklistedToken(holderID ulid.ULID, tok string, issuedAt, expiresAt time.Time) (*BlacklistedToken, error) {
	if holderID.IsZero() {
		return nil, oops.Code("BLACKLIST_INVALID_HOLDER").Errorf("holder ID cannot be zero")
	}
	if tok == "" {
		return nil, oops.Code("BLACKLIST_INVALID_TOKEN").Errorf("token cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("BLACKLIST_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &BlacklistedToken{
		HolderID:  holderID,
		Token:     tok,
		CreatedAt: issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// BlacklistRepository persists redeemed tokens keyed by (holder, token).
type BlacklistRepository interface {
	// Exists reports whether the (holder, token) pair was redeemed.
	Exists(ctx context.Context, holderID ulid.ULID, tok string) (bool, error)

	// Insert records a redemption. Returns ErrAlreadyExists when the pair is
	// already present.
	Insert(ctx context.Context, entry *BlacklistedToken) error

	// DeleteExpired removes receipts whose token expired before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
