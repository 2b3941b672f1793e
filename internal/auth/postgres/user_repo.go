// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
)

const userColumns = `id, email, password_hash, provider, email_verified_at,
		       failed_attempts, locked_until, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db *DB
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, provider, email_verified_at,
			failed_attempts, locked_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.Provider,
		user.EmailVerifiedAt,
		user.FailedAttempts,
		user.LockedUntil,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("USER_EMAIL_TAKEN").Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").With("id", id.String()).Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.conn(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").Wrap(err)
	}
	return user, nil
}

// UpdateLoginState stores the failure counter and lockout.
func (r *UserRepository) UpdateLoginState(ctx context.Context, id ulid.ULID, failedAttempts int, lockedUntil *time.Time) error {
	result, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE users SET failed_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE id = $1
	`, id.String(), failedAttempts, lockedUntil)
	if err != nil {
		return oops.Code("USER_UPDATE_LOGIN_STATE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// RecordLoginFailure increments the failure counter in one statement so
// concurrent failures are never lost.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id ulid.ULID, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	var (
		failed      int
		lockedUntil *time.Time
	)
	err := r.db.conn(ctx).QueryRow(ctx, `
		UPDATE users SET
			failed_attempts = failed_attempts + 1,
			locked_until = CASE
				WHEN $2 > 0 AND failed_attempts + 1 >= $2 THEN $3
				ELSE locked_until
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`, id.String(), threshold, lockUntil).Scan(&failed, &lockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, nil, oops.Code("USER_RECORD_LOGIN_FAILURE_FAILED").With("id", id.String()).Wrap(err)
	}
	return failed, lockedUntil, nil
}

// UpdatePasswordHash replaces the password hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, id.String(), passwordHash)
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// MarkEmailVerified sets email_verified_at when the address is still email.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id ulid.ULID, email string, at time.Time) error {
	result, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE users SET email_verified_at = $3, updated_at = $3
		WHERE id = $1 AND email = $2
	`, id.String(), email, at)
	if err != nil {
		return oops.Code("USER_MARK_VERIFIED_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_EMAIL_MISMATCH").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// ChangeEmail swaps oldEmail for newEmail.
func (r *UserRepository) ChangeEmail(ctx context.Context, id ulid.ULID, oldEmail, newEmail string, at time.Time) error {
	result, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE users SET email = $3, email_verified_at = $4, updated_at = $4
		WHERE id = $1 AND email = $2
	`, id.String(), oldEmail, newEmail, at)
	if isUniqueViolation(err) {
		return oops.Code("USER_EMAIL_TAKEN").With("id", id.String()).Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("USER_CHANGE_EMAIL_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_EMAIL_MISMATCH").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user. Sessions, challenges and devices cascade; blacklist
// receipts are kept until they expire.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans one row. pgx.ErrNoRows is returned unchanged.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)
	err := row.Scan(
		&idStr,
		&user.Email,
		&user.PasswordHash,
		&user.Provider,
		&user.EmailVerifiedAt,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}
	user.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").With("id", idStr).Wrap(err)
	}
	return &user, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
