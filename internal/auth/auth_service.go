// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authengine/pkg/errutil"
)

// dummyPasswordHash is verified when a user doesn't exist so unknown and
// known emails take the same time. It will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AuthenticatorDeps are the collaborators of an Authenticator.
type AuthenticatorDeps struct {
	Users    UserRepository
	Sessions *SessionManager
	Devices  *DeviceVerifier
	Hasher   PasswordHasher
	Notifier Notifier
	Lockout  LockoutPolicy
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Authenticator signs users in and out.
type Authenticator struct {
	users    UserRepository
	sessions *SessionManager
	devices  *DeviceVerifier
	hasher   PasswordHasher
	notifier Notifier
	lockout  LockoutPolicy
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. A zero Lockout uses
// DefaultLockoutPolicy.
func NewAuthenticator(deps AuthenticatorDeps) (*Authenticator, error) {
	switch {
	case deps.Users == nil:
		return nil, oops.Errorf("users repository is required")
	case deps.Sessions == nil:
		return nil, oops.Errorf("session manager is required")
	case deps.Devices == nil:
		return nil, oops.Errorf("device verifier is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case deps.Notifier == nil:
		return nil, oops.Errorf("notifier is required")
	}
	a := &Authenticator{
		users:    deps.Users,
		sessions: deps.Sessions,
		devices:  deps.Devices,
		hasher:   deps.Hasher,
		notifier: deps.Notifier,
		lockout:  deps.Lockout,
		now:      deps.Clock,
		logger:   deps.Logger,
	}
	if a.lockout == (LockoutPolicy{}) {
		a.lockout = DefaultLockoutPolicy()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

// Register creates a local account.
func (a *Authenticator) Register(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, fail(KindMissingInputs, "email and password are required")
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}
	user, err := NewUser(email, hash, ProviderLocal, a.now())
	if err != nil {
		return nil, oops.Code(string(KindInvalid)).With("field", "email").Errorf("%s", err.Error())
	}
	err = a.users.Create(ctx, user)
	if errors.Is(err, ErrAlreadyExists) {
		return nil, fail(KindInvalid, "email already in use")
	}
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "persist user").Wrap(err)
	}
	return user, nil
}

// LoginResult is either a session or, for an untrusted device, a pending
// device challenge.
type LoginResult struct {
	Session   *IssuedSession
	Challenge *DeviceChallenge
}

// Login checks credentials and signs the user in on a trusted device. On an
// unknown device a challenge is started and its code is sent to the user.
// Unknown emails take the same path as wrong passwords.
func (a *Authenticator) Login(ctx context.Context, email, password, deviceID string) (*LoginResult, error) {
	if deviceID == "" {
		return nil, fail(KindDeviceHeaderMissing, "device id is required")
	}
	if email == "" || password == "" {
		return nil, fail(KindMissingInputs, "email and password are required")
	}

	user, lookupErr := a.users.GetByEmail(ctx, NormalizeEmail(email))
	exists := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		Logins.WithLabelValues(OutcomeError).Inc()
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get user by email").Wrap(lookupErr)
	}

	targetHash := dummyPasswordHash
	if exists && user.IsLocal() {
		targetHash = user.PasswordHash
	}
	valid, verifyErr := a.hasher.Verify(password, targetHash)
	if verifyErr != nil && exists && user.IsLocal() {
		Logins.WithLabelValues(OutcomeError).Inc()
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "verify password").Wrap(verifyErr)
	}

	now := a.now()
	if !exists || !user.IsLocal() || !valid {
		if exists && user.IsLocal() {
			// The increment happens in the store so parallel guesses all count.
			failed, lockedUntil, err := a.users.RecordLoginFailure(ctx, user.ID, a.lockout.Threshold, a.lockout.Deadline(now))
			if err != nil {
				errutil.LogError(a.logger, "failed to record login failure", err)
			} else if a.lockout.Locks(failed) {
				a.logger.WarnContext(ctx, "account locked after repeated login failures",
					"user_id", user.ID.String(),
					"failed_attempts", failed,
					"locked_until", lockedUntil,
				)
			}
		}
		Logins.WithLabelValues(OutcomeRejected).Inc()
		return nil, fail(KindInvalidCredentials, "invalid email or password")
	}

	// Lockout is checked after verification to keep timing uniform.
	if a.lockout.IsLocked(user.LockedUntil, now) {
		Logins.WithLabelValues(OutcomeRejected).Inc()
		return nil, oops.Code(string(KindAccountLocked)).
			With("locked_until", user.LockedUntil).
			Errorf("account is temporarily locked")
	}

	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		a.lockout.RecordSuccess(user, now)
		if err := a.users.UpdateLoginState(ctx, user.ID, 0, nil); err != nil {
			errutil.LogError(a.logger, "failed to reset login failures", err)
		}
	}
	if a.hasher.NeedsUpgrade(user.PasswordHash) {
		if upgraded, err := a.hasher.Hash(password); err == nil {
			if err := a.users.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
				errutil.LogError(a.logger, "failed to upgrade password hash", err)
			}
		}
	}

	trusted, err := a.devices.IsTrusted(ctx, user.ID, deviceID)
	if err != nil {
		Logins.WithLabelValues(OutcomeError).Inc()
		return nil, err
	}
	if !trusted {
		challenge, err := a.devices.CreateDeviceVerification(ctx, user.ID, deviceID)
		if err != nil {
			Logins.WithLabelValues(OutcomeError).Inc()
			return nil, err
		}
		if !challenge.Reused {
			n := Notification{Kind: NotifyDeviceCode, UserID: user.ID, Email: challenge.Email, Code: challenge.Code}
			if err := a.notifier.Notify(ctx, n); err != nil {
				Logins.WithLabelValues(OutcomeError).Inc()
				return nil, oops.Code("NOTIFY_FAILED").With("kind", string(n.Kind)).Wrap(err)
			}
		}
		Logins.WithLabelValues(OutcomeChallenged).Inc()
		return &LoginResult{Challenge: challenge}, nil
	}

	issued, err := a.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		Logins.WithLabelValues(OutcomeError).Inc()
		return nil, err
	}
	if err := a.devices.TouchDevice(ctx, user.ID, deviceID); err != nil {
		errutil.LogError(a.logger, "failed to record device sign-in", err)
	}
	Logins.WithLabelValues(OutcomeSuccess).Inc()
	return &LoginResult{Session: issued}, nil
}

// Logout ends one session.
func (a *Authenticator) Logout(ctx context.Context, userID ulid.ULID, sessionID string) error {
	return a.sessions.DeleteSession(ctx, userID, sessionID)
}

// LogoutAll ends every session of the user.
func (a *Authenticator) LogoutAll(ctx context.Context, userID ulid.ULID) (int64, error) {
	return a.sessions.DeleteAllSessions(ctx, userID)
}
