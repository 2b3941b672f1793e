// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/token"
	"github.com/holomush/authengine/pkg/errutil"
)

// ErrChallengeVerified is wrapped by VerifyDeviceID when the challenge was
// already completed, including by a concurrent caller.
var ErrChallengeVerified = errors.New("device verification already completed")

// DeviceChallenge is handed back when a device must be verified. Code is the
// raw one-time code for out-of-band delivery; it is empty when an existing
// challenge was reused.
type DeviceChallenge struct {
	ChallengeID ulid.ULID
	Token       string
	Code        string
	Email       string
	Reused      bool
}

// DeviceVerifierDeps are the collaborators of a DeviceVerifier.
type DeviceVerifierDeps struct {
	Challenges DeviceVerificationRepository
	Devices    UserDeviceRepository
	Users      UserRepository
	Codec      TokenCodec
	Hasher     PasswordHasher
	UnitOfWork UnitOfWork
	Clock      func() time.Time
	Logger     *slog.Logger
}

// DeviceVerifier runs device verification challenges and keeps the set of
// devices each user trusts.
type DeviceVerifier struct {
	challenges DeviceVerificationRepository
	devices    UserDeviceRepository
	users      UserRepository
	codec      TokenCodec
	hasher     PasswordHasher
	uow        UnitOfWork
	now        func() time.Time
	logger     *slog.Logger
}

// NewDeviceVerifier creates a DeviceVerifier.
func NewDeviceVerifier(deps DeviceVerifierDeps) (*DeviceVerifier, error) {
	switch {
	case deps.Challenges == nil:
		return nil, oops.Errorf("device verification repository is required")
	case deps.Devices == nil:
		return nil, oops.Errorf("user device repository is required")
	case deps.Users == nil:
		return nil, oops.Errorf("users repository is required")
	case deps.Codec == nil:
		return nil, oops.Errorf("token codec is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	}
	v := &DeviceVerifier{
		challenges: deps.Challenges,
		devices:    deps.Devices,
		users:      deps.Users,
		codec:      deps.Codec,
		hasher:     deps.Hasher,
		uow:        deps.UnitOfWork,
		now:        deps.Clock,
		logger:     deps.Logger,
	}
	if v.uow == nil {
		v.uow = Immediate
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// CreateDeviceVerification starts a challenge for an unrecognized device.
// Asking again within DeviceChallengeTTL returns the same token instead of
// issuing a new code.
func (d *DeviceVerifier) CreateDeviceVerification(ctx context.Context, userID ulid.ULID, deviceID string) (*DeviceChallenge, error) {
	if deviceID == "" {
		return nil, fail(KindDeviceHeaderMissing, "device id is required")
	}

	user, err := d.users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(string(KindDoesNotExist)).With("user_id", userID.String()).Errorf("user does not exist")
	}
	if err != nil {
		return nil, oops.Code("DEVICE_CHALLENGE_FAILED").With("operation", "get user").Wrap(err)
	}

	now := d.now()
	pending, err := d.challenges.FindPending(ctx, userID, deviceID, now.Add(-DeviceChallengeTTL))
	switch {
	case err == nil && pending.Token != nil && d.codec.Verify(*pending.Token, token.DeviceVerify):
		return &DeviceChallenge{
			ChallengeID: pending.ID,
			Token:       *pending.Token,
			Email:       user.Email,
			Reused:      true,
		}, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, oops.Code("DEVICE_CHALLENGE_FAILED").With("operation", "find pending challenge").Wrap(err)
	}

	code, err := GenerateDeviceCode()
	if err != nil {
		return nil, oops.Code("DEVICE_CHALLENGE_FAILED").With("operation", "generate code").Wrap(err)
	}
	codeHash, err := d.hasher.Hash(code)
	if err != nil {
		return nil, oops.Code("DEVICE_CHALLENGE_FAILED").With("operation", "hash code").Wrap(err)
	}
	challenge, err := NewDeviceVerification(userID, deviceID, codeHash, now)
	if err != nil {
		return nil, oops.Code("DEVICE_CHALLENGE_FAILED").With("operation", "build challenge").Wrap(err)
	}
	signed, err := d.codec.Create(token.DeviceVerify, token.DeviceVerifyClaims{
		UserID:               userID,
		DeviceVerificationID: challenge.ID,
	})
	if err != nil {
		return nil, oops.Code("DEVICE_CHALLENGE_FAILED").With("operation", "sign token").Wrap(err)
	}
	challenge.Token = &signed

	if err := d.challenges.Create(ctx, challenge); err != nil {
		return nil, oops.Code("DEVICE_CHALLENGE_FAILED").
			With("operation", "persist challenge").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return &DeviceChallenge{
		ChallengeID: challenge.ID,
		Token:       signed,
		Code:        code,
		Email:       user.Email,
	}, nil
}

// VerifyDeviceID completes a challenge and trusts the device. The challenge
// must belong to the user, be unverified and fresh, and match both the
// presented device id and code.
func (d *DeviceVerifier) VerifyDeviceID(ctx context.Context, userID ulid.ULID, code, deviceID string, challengeID ulid.ULID) error {
	if deviceID == "" {
		return fail(KindDeviceHeaderMissing, "device id is required")
	}
	if code == "" {
		return fail(KindMissingInputs, "verification code is required")
	}

	return d.uow.Do(ctx, func(ctx context.Context) error {
		challenge, err := d.challenges.Get(ctx, challengeID)
		if errors.Is(err, ErrNotFound) || (err == nil && challenge.UserID != userID) {
			return oops.Code(string(KindDoesNotExist)).
				With("challenge_id", challengeID.String()).
				Errorf("device verification does not exist")
		}
		if err != nil {
			return oops.Code("DEVICE_VERIFY_FAILED").With("operation", "get challenge").Wrap(err)
		}

		now := d.now()
		if challenge.IsVerified() {
			return oops.Code(string(KindInvalid)).With("challenge_id", challengeID.String()).
				Wrap(ErrChallengeVerified)
		}
		if challenge.IsExpiredAt(now) {
			return oops.Code(string(KindInvalid)).With("challenge_id", challengeID.String()).
				Errorf("device verification expired")
		}
		if challenge.ExpectedDeviceID != deviceID {
			return oops.Code(string(KindInvalid)).With("challenge_id", challengeID.String()).
				Errorf("device does not match verification")
		}
		ok, err := d.hasher.Verify(code, challenge.CodeHash)
		if err != nil {
			return oops.Code("DEVICE_VERIFY_FAILED").With("operation", "verify code").Wrap(err)
		}
		if !ok {
			return oops.Code(string(KindInvalid)).With("challenge_id", challengeID.String()).
				Errorf("verification code does not match")
		}

		err = d.challenges.MarkVerified(ctx, challengeID, now)
		if errors.Is(err, ErrNotFound) {
			return oops.Code(string(KindInvalid)).With("challenge_id", challengeID.String()).
				Wrap(ErrChallengeVerified)
		}
		if err != nil {
			return oops.Code("DEVICE_VERIFY_FAILED").With("operation", "mark verified").Wrap(err)
		}
		if err := d.removeSiblingChallenges(ctx, userID, deviceID, challengeID); err != nil {
			return err
		}
		return d.TrustDevice(ctx, userID, deviceID)
	})
}

// removeSiblingChallenges drops the user's other unverified challenges for
// the device once one of them has been completed.
func (d *DeviceVerifier) removeSiblingChallenges(ctx context.Context, userID ulid.ULID, deviceID string, verified ulid.ULID) error {
	pending, err := d.challenges.ListUnverified(ctx, userID, deviceID)
	if err != nil {
		return oops.Code("DEVICE_VERIFY_FAILED").With("operation", "list pending").Wrap(err)
	}
	ids := make([]ulid.ULID, 0, len(pending))
	for _, c := range pending {
		if c.ID != verified {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	n, err := d.RemoveDeviceVerifications(ctx, ids)
	if err != nil {
		return err
	}
	d.logger.DebugContext(ctx, "removed stale device verifications",
		"user_id", userID.String(), "count", n)
	return nil
}

// RemoveDeviceVerifications deletes the given challenges and reports how many
// existed.
func (d *DeviceVerifier) RemoveDeviceVerifications(ctx context.Context, ids []ulid.ULID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := d.challenges.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, oops.Code("DEVICE_VERIFICATION_REMOVE_FAILED").With("count", len(ids)).Wrap(err)
	}
	return n, nil
}

// TrustDevice adds deviceID to the user's trusted devices, or refreshes its
// last sign-in when it is already trusted.
func (d *DeviceVerifier) TrustDevice(ctx context.Context, userID ulid.ULID, deviceID string) error {
	if deviceID == "" {
		return fail(KindDeviceHeaderMissing, "device id is required")
	}
	now := d.now()
	err := d.devices.Create(ctx, &UserDevice{UserID: userID, DeviceID: deviceID, CreatedAt: now, LastSignedIn: &now})
	if errors.Is(err, ErrAlreadyExists) {
		return d.TouchDevice(ctx, userID, deviceID)
	}
	if err != nil {
		return oops.Code("DEVICE_TRUST_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

// IsTrusted reports whether the user trusts deviceID and the trust has not
// expired.
func (d *DeviceVerifier) IsTrusted(ctx context.Context, userID ulid.ULID, deviceID string) (bool, error) {
	device, err := d.devices.Get(ctx, userID, deviceID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("DEVICE_LOOKUP_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return !device.IsExpiredAt(d.now()), nil
}

// TouchDevice records a sign-in from a trusted device.
func (d *DeviceVerifier) TouchDevice(ctx context.Context, userID ulid.ULID, deviceID string) error {
	err := d.devices.Touch(ctx, userID, deviceID, d.now())
	if errors.Is(err, ErrNotFound) {
		return oops.Code(string(KindDoesNotExist)).With("user_id", userID.String()).Errorf("device is not trusted")
	}
	if err != nil {
		return oops.Code("DEVICE_TOUCH_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

// RemoveExpiredDeviceVerifications deletes challenges older than DeviceChallengeTTL.
func (d *DeviceVerifier) RemoveExpiredDeviceVerifications(ctx context.Context) (int64, error) {
	n, err := d.challenges.DeleteCreatedBefore(ctx, d.now().Add(-DeviceChallengeTTL))
	if err != nil {
		return 0, oops.Code("DEVICE_SWEEP_FAILED").With("target", "device_verifications").Wrap(err)
	}
	return n, nil
}

// RemoveExpiredDevices deletes trusted devices older than TrustedDeviceTTL,
// one user at a time. A failing user is logged and skipped; the returned
// error reports how many users failed.
func (d *DeviceVerifier) RemoveExpiredDevices(ctx context.Context) (int64, error) {
	expired, err := d.devices.ListCreatedBefore(ctx, d.now().Add(-TrustedDeviceTTL))
	if err != nil {
		return 0, oops.Code("DEVICE_SWEEP_FAILED").With("target", "user_devices").Wrap(err)
	}

	byUser := make(map[ulid.ULID][]string)
	for _, device := range expired {
		byUser[device.UserID] = append(byUser[device.UserID], device.DeviceID)
	}
	users := make([]ulid.ULID, 0, len(byUser))
	for userID := range byUser {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Compare(users[j]) < 0 })

	var deleted int64
	var failed int
	for _, userID := range users {
		if ctx.Err() != nil {
			return deleted, oops.Code("DEVICE_SWEEP_FAILED").Wrap(ctx.Err())
		}
		n, err := d.devices.DeleteForUser(ctx, userID, byUser[userID])
		if err != nil {
			failed++
			errutil.LogError(d.logger, "failed to remove expired devices",
				oops.With("user_id", userID.String()).Wrap(err))
			continue
		}
		deleted += n
	}
	if failed > 0 {
		return deleted, oops.Code("DEVICE_SWEEP_PARTIAL").
			With("failed_users", failed).
			Errorf("expired devices of %d users could not be removed", failed)
	}
	return deleted, nil
}
