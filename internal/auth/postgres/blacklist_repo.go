// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
)

// BlacklistRepository implements auth.BlacklistRepository using PostgreSQL.
// The (holder_id, token) primary key is what makes redemption single-use.
type BlacklistRepository struct {
	db *DB
}

// Exists reports whether the holder already redeemed tok.
func (r *BlacklistRepository) Exists(ctx context.Context, holderID ulid.ULID, tok string) (bool, error) {
	var found bool
	err := r.db.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE holder_id = $1 AND token = $2)
	`, holderID.String(), tok).Scan(&found)
	if err != nil {
		return false, oops.Code("BLACKLIST_LOOKUP_FAILED").With("holder_id", holderID.String()).Wrap(err)
	}
	return found, nil
}

// Insert records a redemption.
func (r *BlacklistRepository) Insert(ctx context.Context, entry *auth.BlacklistedToken) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO blacklisted_tokens (holder_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, entry.HolderID.String(), entry.Token, entry.CreatedAt, entry.ExpiresAt)
	if isUniqueViolation(err) {
		return oops.Code("BLACKLIST_DUPLICATE").
			With("holder_id", entry.HolderID.String()).
			Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("BLACKLIST_INSERT_FAILED").
			With("holder_id", entry.HolderID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes receipts of tokens that expired before the cutoff.
func (r *BlacklistRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM blacklisted_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("BLACKLIST_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return result.RowsAffected(), nil
}

var _ auth.BlacklistRepository = (*BlacklistRepository)(nil)
