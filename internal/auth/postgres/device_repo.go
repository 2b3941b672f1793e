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

const challengeColumns = `id, user_id, expected_device_id, code_hash, verified_at, token, created_at`

// DeviceVerificationRepository implements auth.DeviceVerificationRepository
// using PostgreSQL.
type DeviceVerificationRepository struct {
	db *DB
}

// Create stores a challenge.
func (r *DeviceVerificationRepository) Create(ctx context.Context, v *auth.DeviceVerification) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO device_verifications (`+challengeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		v.ID.String(),
		v.UserID.String(),
		v.ExpectedDeviceID,
		v.CodeHash,
		v.VerifiedAt,
		v.Token,
		v.CreatedAt,
	)
	if err != nil {
		return oops.Code("DEVICE_VERIFICATION_CREATE_FAILED").
			With("user_id", v.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves a challenge.
func (r *DeviceVerificationRepository) Get(ctx context.Context, id ulid.ULID) (*auth.DeviceVerification, error) {
	row := r.db.conn(ctx).QueryRow(ctx, `
		SELECT `+challengeColumns+` FROM device_verifications WHERE id = $1
	`, id.String())

	v, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("DEVICE_VERIFICATION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("DEVICE_VERIFICATION_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return v, nil
}

// FindPending returns the newest unverified, token-bound challenge for the
// device created at or after since.
func (r *DeviceVerificationRepository) FindPending(ctx context.Context, userID ulid.ULID, deviceID string, since time.Time) (*auth.DeviceVerification, error) {
	row := r.db.conn(ctx).QueryRow(ctx, `
		SELECT `+challengeColumns+`
		FROM device_verifications
		WHERE user_id = $1
		  AND expected_device_id = $2
		  AND verified_at IS NULL
		  AND token IS NOT NULL
		  AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`, userID.String(), deviceID, since)

	v, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("DEVICE_VERIFICATION_NOT_FOUND").With("user_id", userID.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("DEVICE_VERIFICATION_FIND_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return v, nil
}

// MarkVerified sets verified_at on an unverified challenge.
func (r *DeviceVerificationRepository) MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE device_verifications SET verified_at = $2
		WHERE id = $1 AND verified_at IS NULL
	`, id.String(), at)
	if err != nil {
		return oops.Code("DEVICE_VERIFICATION_MARK_FAILED").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("DEVICE_VERIFICATION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteCreatedBefore removes challenges created before the cutoff.
func (r *DeviceVerificationRepository) DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM device_verifications WHERE created_at < $1`, before)
	if err != nil {
		return 0, oops.Code("DEVICE_VERIFICATION_DELETE_FAILED").Wrap(err)
	}
	return result.RowsAffected(), nil
}

// ListUnverified returns the user's unverified challenges for the device,
// newest first.
func (r *DeviceVerificationRepository) ListUnverified(ctx context.Context, userID ulid.ULID, deviceID string) ([]*auth.DeviceVerification, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT `+challengeColumns+`
		FROM device_verifications
		WHERE user_id = $1 AND expected_device_id = $2 AND verified_at IS NULL
		ORDER BY created_at DESC
	`, userID.String(), deviceID)
	if err != nil {
		return nil, oops.Code("DEVICE_VERIFICATION_LIST_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	defer rows.Close()

	var out []*auth.DeviceVerification
	for rows.Next() {
		v, err := scanChallenge(rows)
		if err != nil {
			return nil, oops.Code("DEVICE_VERIFICATION_SCAN_FAILED").With("user_id", userID.String()).Wrap(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DEVICE_VERIFICATION_LIST_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return out, nil
}

// DeleteByIDs removes the listed challenges.
func (r *DeviceVerificationRepository) DeleteByIDs(ctx context.Context, ids []ulid.ULID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM device_verifications WHERE id = ANY($1)`, strs)
	if err != nil {
		return 0, oops.Code("DEVICE_VERIFICATION_DELETE_FAILED").With("count", len(ids)).Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanChallenge(row pgx.Row) (*auth.DeviceVerification, error) {
	var (
		idStr, userIDStr string
		v                auth.DeviceVerification
	)
	err := row.Scan(&idStr, &userIDStr, &v.ExpectedDeviceID, &v.CodeHash, &v.VerifiedAt, &v.Token, &v.CreatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}
	if v.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("DEVICE_VERIFICATION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if v.UserID, err = ulid.Parse(userIDStr); err != nil {
		return nil, oops.Code("DEVICE_VERIFICATION_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	return &v, nil
}

// UserDeviceRepository implements auth.UserDeviceRepository using PostgreSQL.
type UserDeviceRepository struct {
	db *DB
}

// Create trusts a device.
func (r *UserDeviceRepository) Create(ctx context.Context, d *auth.UserDevice) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO user_devices (user_id, device_id, created_at, last_signed_in)
		VALUES ($1, $2, $3, $4)
	`, d.UserID.String(), d.DeviceID, d.CreatedAt, d.LastSignedIn)
	if isUniqueViolation(err) {
		return oops.Code("USER_DEVICE_EXISTS").With("user_id", d.UserID.String()).Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("USER_DEVICE_CREATE_FAILED").With("user_id", d.UserID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a trusted device.
func (r *UserDeviceRepository) Get(ctx context.Context, userID ulid.ULID, deviceID string) (*auth.UserDevice, error) {
	d := auth.UserDevice{UserID: userID, DeviceID: deviceID}
	err := r.db.conn(ctx).QueryRow(ctx, `
		SELECT created_at, last_signed_in
		FROM user_devices
		WHERE user_id = $1 AND device_id = $2
	`, userID.String(), deviceID).Scan(&d.CreatedAt, &d.LastSignedIn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_DEVICE_NOT_FOUND").With("user_id", userID.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_DEVICE_GET_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return &d, nil
}

// Touch records a sign-in from the device.
func (r *UserDeviceRepository) Touch(ctx context.Context, userID ulid.ULID, deviceID string, at time.Time) error {
	result, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE user_devices SET last_signed_in = $3
		WHERE user_id = $1 AND device_id = $2
	`, userID.String(), deviceID, at)
	if err != nil {
		return oops.Code("USER_DEVICE_TOUCH_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_DEVICE_NOT_FOUND").With("user_id", userID.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// ListCreatedBefore returns devices trusted before the cutoff, grouped by
// user.
func (r *UserDeviceRepository) ListCreatedBefore(ctx context.Context, before time.Time) ([]*auth.UserDevice, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT user_id, device_id, created_at, last_signed_in
		FROM user_devices
		WHERE created_at < $1
		ORDER BY user_id, device_id
	`, before)
	if err != nil {
		return nil, oops.Code("USER_DEVICE_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var devices []*auth.UserDevice
	for rows.Next() {
		var (
			userIDStr string
			d         auth.UserDevice
		)
		if err := rows.Scan(&userIDStr, &d.DeviceID, &d.CreatedAt, &d.LastSignedIn); err != nil {
			return nil, oops.Code("USER_DEVICE_SCAN_FAILED").Wrap(err)
		}
		if d.UserID, err = ulid.Parse(userIDStr); err != nil {
			return nil, oops.Code("USER_DEVICE_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
		}
		devices = append(devices, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_DEVICE_ROWS_ERROR").Wrap(err)
	}
	return devices, nil
}

// DeleteForUser removes the listed devices of one user.
func (r *UserDeviceRepository) DeleteForUser(ctx context.Context, userID ulid.ULID, deviceIDs []string) (int64, error) {
	if len(deviceIDs) == 0 {
		return 0, nil
	}
	result, err := r.db.conn(ctx).Exec(ctx, `
		DELETE FROM user_devices WHERE user_id = $1 AND device_id = ANY($2)
	`, userID.String(), deviceIDs)
	if err != nil {
		return 0, oops.Code("USER_DEVICE_DELETE_FAILED").
			With("user_id", userID.String()).
			With("devices", len(deviceIDs)).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

var (
	_ auth.DeviceVerificationRepository = (*DeviceVerificationRepository)(nil)
	_ auth.UserDeviceRepository         = (*UserDeviceRepository)(nil)
)
