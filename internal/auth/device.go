// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Device lifetimes.
const (
	// DeviceChallengeTTL is how long a device verification challenge stays usable.
	DeviceChallengeTTL = 10 * time.Minute

	// TrustedDeviceTTL is how long a device stays trusted after it was added.
	TrustedDeviceTTL = 365 * 24 * time.Hour
)

// DeviceVerification is a pending challenge binding a one-time code to a
// device fingerprint.
type DeviceVerification struct {
	ID               ulid.ULID
	UserID           ulid.ULID
	ExpectedDeviceID string
	CodeHash         string
	VerifiedAt       *time.Time
	Token            *string
	CreatedAt        time.Time
}

// NewDeviceVerification creates a validated challenge. The ID is assigned
// here so a token can be bound to it before the row is stored.
func NewDeviceVerification(userID ulid.ULID, deviceID, codeHash string, createdAt time.Time) (*DeviceVerification, error) {
	if userID.IsZero() {
		return nil, oops.Code("DEVICE_VERIFICATION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if deviceID == "" {
		return nil, oops.Code("DEVICE_VERIFICATION_INVALID_DEVICE").Errorf("device ID cannot be empty")
	}
	if codeHash == "" {
		return nil, oops.Code("DEVICE_VERIFICATION_INVALID_CODE").Errorf("code hash cannot be empty")
	}
	return &DeviceVerification{
		ID:               ulid.Make(),
		UserID:           userID,
		ExpectedDeviceID: deviceID,
		CodeHash:         codeHash,
		CreatedAt:        createdAt,
	}, nil
}

// IsVerified reports whether the challenge was already completed.
func (v *DeviceVerification) IsVerified() bool {
	return v.VerifiedAt != nil
}

// IsExpiredAt reports whether the challenge is older than DeviceChallengeTTL at t.
func (v *DeviceVerification) IsExpiredAt(t time.Time) bool {
	return !t.Before(v.CreatedAt.Add(DeviceChallengeTTL))
}

// UserDevice is a device fingerprint trusted by a user.
type UserDevice struct {
	UserID       ulid.ULID
	DeviceID     string
	CreatedAt    time.Time
	LastSignedIn *time.Time
}

// IsExpiredAt reports whether the device is older than TrustedDeviceTTL at t.
func (d *UserDevice) IsExpiredAt(t time.Time) bool {
	return !t.Before(d.CreatedAt.Add(TrustedDeviceTTL))
}

// DeviceVerificationRepository persists device verification challenges.
type DeviceVerificationRepository interface {
	// Create stores a new challenge.
	Create(ctx context.Context, v *DeviceVerification) error

	// Get retrieves a challenge by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id ulid.ULID) (*DeviceVerification, error)

	// FindPending returns the newest unverified, token-bound challenge of the
	// user for deviceID created at or after since. Returns ErrNotFound if none.
	FindPending(ctx context.Context, userID ulid.ULID, deviceID string, since time.Time) (*DeviceVerification, error)

	// MarkVerified sets verified_at on an unverified challenge. Returns
	// ErrNotFound if the challenge is absent or was verified already.
	MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error

	// ListUnverified returns the user's unverified challenges for deviceID,
	// newest first.
	ListUnverified(ctx context.Context, userID ulid.ULID, deviceID string) ([]*DeviceVerification, error)

	// DeleteCreatedBefore removes challenges created before the cutoff.
	DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error)

	// DeleteByIDs removes the listed challenges and returns how many existed.
	DeleteByIDs(ctx context.Context, ids []ulid.ULID) (int64, error)
}

// UserDeviceRepository persists trusted devices keyed by (user, device).
type UserDeviceRepository interface {
	// Create stores a trusted device. Returns ErrAlreadyExists when the
	// device is already trusted by the user.
	Create(ctx context.Context, d *UserDevice) error

	// Get retrieves a trusted device. Returns ErrNotFound if absent.
	Get(ctx context.Context, userID ulid.ULID, deviceID string) (*UserDevice, error)

	// Touch records a sign-in from the device. Returns ErrNotFound if the
	// device is not trusted.
	Touch(ctx context.Context, userID ulid.ULID, deviceID string, at time.Time) error

	// ListCreatedBefore returns devices added before the cutoff.
	ListCreatedBefore(ctx context.Context, before time.Time) ([]*UserDevice, error)

	// DeleteForUser removes the listed devices of one user.
	DeleteForUser(ctx context.Context, userID ulid.ULID, deviceIDs []string) (int64, error)
}
