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

	"github.com/holomush/authengine/internal/token"
)

// Confirmation flow names, used as metric labels.
const (
	FlowEmailVerify   = "email_verify"
	FlowEmailChange   = "email_change"
	FlowResetPassword = "reset_password"
	FlowDeviceVerify  = "device_verify"
	FlowUserDeletion  = "user_deletion"
)

// ConfirmationsDeps are the collaborators of Confirmations.
type ConfirmationsDeps struct {
	Users      UserRepository
	Sessions   *SessionManager
	Devices    *DeviceVerifier
	Guard      *Guard
	Codec      TokenCodec
	Hasher     PasswordHasher
	UnitOfWork UnitOfWork
	Notifier   Notifier
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Confirmations issues and redeems the single-use tokens behind email
// verification, email change, password reset, device verification and
// account deletion.
type Confirmations struct {
	users    UserRepository
	sessions *SessionManager
	devices  *DeviceVerifier
	guard    *Guard
	codec    TokenCodec
	hasher   PasswordHasher
	uow      UnitOfWork
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewConfirmations creates the confirmation service.
func NewConfirmations(deps ConfirmationsDeps) (*Confirmations, error) {
	switch {
	case deps.Users == nil:
		return nil, oops.Errorf("users repository is required")
	case deps.Sessions == nil:
		return nil, oops.Errorf("session manager is required")
	case deps.Devices == nil:
		return nil, oops.Errorf("device verifier is required")
	case deps.Guard == nil:
		return nil, oops.Errorf("guard is required")
	case deps.Codec == nil:
		return nil, oops.Errorf("token codec is required")
	case deps.Hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case deps.Notifier == nil:
		return nil, oops.Errorf("notifier is required")
	}
	c := &Confirmations{
		users:    deps.Users,
		sessions: deps.Sessions,
		devices:  deps.Devices,
		guard:    deps.Guard,
		codec:    deps.Codec,
		hasher:   deps.Hasher,
		uow:      deps.UnitOfWork,
		notifier: deps.Notifier,
		now:      deps.Clock,
		logger:   deps.Logger,
	}
	if c.uow == nil {
		c.uow = Immediate
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// redemption describes one single-use token being spent.
type redemption struct {
	flow   string
	raw    string
	typ    token.Type
	holder ulid.ULID
	stamp  token.Stamp
}

// redeem spends a decoded token. Checks run in a fixed order: already used,
// then signature and expiry, then the business rule. The effect and the
// blacklist insert share one unit of work so neither lands without the other.
func (c *Confirmations) redeem(ctx context.Context, r redemption, rule, effect func(ctx context.Context) error) error {
	used, err := c.guard.IsRedeemed(ctx, r.holder, r.raw)
	if err != nil {
		recordRedemption(r.flow, OutcomeError)
		return err
	}
	if used {
		recordRedemption(r.flow, OutcomeAlreadyUsed)
		return oops.Code(string(KindRequestAlreadyUsed)).With("flow", r.flow).Errorf("request already used")
	}
	if !c.codec.Verify(r.raw, r.typ) {
		recordRedemption(r.flow, OutcomeExpired)
		return oops.Code(string(KindRequestExpired)).With("flow", r.flow).Errorf("request expired")
	}
	if rule != nil {
		if err := rule(ctx); err != nil {
			recordRedemption(r.flow, OutcomeRejected)
			return err
		}
	}

	err = c.uow.Do(ctx, func(ctx context.Context) error {
		if err := effect(ctx); err != nil {
			return err
		}
		return c.guard.Redeem(ctx, r.holder, r.raw, r.stamp.Issued(), r.stamp.Expires())
	})
	if err != nil {
		if KindOf(err) == KindRequestAlreadyUsed {
			recordRedemption(r.flow, OutcomeAlreadyUsed)
		} else {
			recordRedemption(r.flow, OutcomeError)
		}
		return err
	}

	c.guard.remember(r.holder, r.raw, r.stamp.Expires())
	recordRedemption(r.flow, OutcomeSuccess)
	return nil
}

// malformed reports a token that cannot be decoded. Tampered tokens are
// reported like expired ones.
func malformed(flow string, err error) error {
	return oops.Code(string(KindRequestExpired)).
		With("flow", flow).
		With("cause", err.Error()).
		Errorf("request expired")
}

func (c *Confirmations) loadUser(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := c.users.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(string(KindDoesNotExist)).With("user_id", id.String()).Errorf("user does not exist")
	}
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

func (c *Confirmations) notify(ctx context.Context, n Notification) error {
	if err := c.notifier.Notify(ctx, n); err != nil {
		return oops.Code("NOTIFY_FAILED").
			With("kind", string(n.Kind)).
			With("user_id", n.UserID.String()).
			Wrap(err)
	}
	return nil
}

// IssueEmailVerification sends an EMAIL_VERIFY token for the user's current
// address and returns it.
func (c *Confirmations) IssueEmailVerification(ctx context.Context, userID ulid.ULID) (string, error) {
	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.IsEmailVerified() {
		return "", oops.Code(string(KindInvalid)).With("user_id", userID.String()).Errorf("email already verified")
	}
	signed, err := c.codec.Create(token.EmailVerify, token.EmailVerifyClaims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return "", oops.Code("EMAIL_VERIFY_REQUEST_FAILED").Wrap(err)
	}
	if err := c.notify(ctx, Notification{Kind: NotifyEmailVerification, UserID: user.ID, Email: user.Email, Token: signed}); err != nil {
		return "", err
	}
	return signed, nil
}

// VerifyEmail redeems an EMAIL_VERIFY token.
func (c *Confirmations) VerifyEmail(ctx context.Context, raw string) error {
	if raw == "" {
		return fail(KindMissingInputs, "token is required")
	}
	claims, err := c.codec.DecodeEmailVerify(raw)
	if err != nil {
		return malformed(FlowEmailVerify, err)
	}

	r := redemption{flow: FlowEmailVerify, raw: raw, typ: token.EmailVerify, holder: claims.UserID, stamp: claims.Stamp}
	rule := func(ctx context.Context) error {
		user, err := c.loadUser(ctx, claims.UserID)
		if err != nil {
			return err
		}
		if user.Email != claims.Email {
			return oops.Code(string(KindInvalid)).With("user_id", claims.UserID.String()).
				Errorf("email address changed since the request")
		}
		return nil
	}
	effect := func(ctx context.Context) error {
		err := c.users.MarkEmailVerified(ctx, claims.UserID, claims.Email, c.now())
		if errors.Is(err, ErrNotFound) {
			return oops.Code(string(KindInvalid)).With("user_id", claims.UserID.String()).
				Errorf("email address changed since the request")
		}
		if err != nil {
			return oops.Code("EMAIL_VERIFY_FAILED").With("user_id", claims.UserID.String()).Wrap(err)
		}
		return nil
	}
	return c.redeem(ctx, r, rule, effect)
}

// RequestEmailChange sends an EMAIL_CHANGE token to the new address and
// returns it.
func (c *Confirmations) RequestEmailChange(ctx context.Context, userID ulid.ULID, newEmail string) (string, error) {
	newEmail = NormalizeEmail(newEmail)
	if newEmail == "" {
		return "", fail(KindMissingInputs, "new email is required")
	}
	if err := ValidateEmail(newEmail); err != nil {
		return "", oops.Code(string(KindInvalid)).With("field", "email").Errorf("%s", err.Error())
	}

	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Email == newEmail {
		return "", fail(KindInvalid, "new email matches the current one")
	}
	_, err = c.users.GetByEmail(ctx, newEmail)
	if err == nil {
		return "", fail(KindInvalid, "email already in use")
	}
	if !errors.Is(err, ErrNotFound) {
		return "", oops.Code("EMAIL_CHANGE_REQUEST_FAILED").With("operation", "get user by email").Wrap(err)
	}

	signed, err := c.codec.Create(token.EmailChange, token.EmailChangeClaims{
		UserID:   user.ID,
		OldEmail: user.Email,
		NewEmail: newEmail,
	})
	if err != nil {
		return "", oops.Code("EMAIL_CHANGE_REQUEST_FAILED").Wrap(err)
	}
	if err := c.notify(ctx, Notification{Kind: NotifyEmailChange, UserID: user.ID, Email: newEmail, Token: signed}); err != nil {
		return "", err
	}
	return signed, nil
}

// ConfirmEmailChange redeems an EMAIL_CHANGE token and signs the user out
// everywhere.
func (c *Confirmations) ConfirmEmailChange(ctx context.Context, raw string) error {
	if raw == "" {
		return fail(KindMissingInputs, "token is required")
	}
	claims, err := c.codec.DecodeEmailChange(raw)
	if err != nil {
		return malformed(FlowEmailChange, err)
	}

	r := redemption{flow: FlowEmailChange, raw: raw, typ: token.EmailChange, holder: claims.UserID, stamp: claims.Stamp}
	rule := func(ctx context.Context) error {
		user, err := c.loadUser(ctx, claims.UserID)
		if err != nil {
			return err
		}
		if user.Email != claims.OldEmail {
			return oops.Code(string(KindInvalid)).With("user_id", claims.UserID.String()).
				Errorf("email address changed since the request")
		}
		return nil
	}
	effect := func(ctx context.Context) error {
		err := c.users.ChangeEmail(ctx, claims.UserID, claims.OldEmail, claims.NewEmail, c.now())
		switch {
		case errors.Is(err, ErrNotFound):
			return oops.Code(string(KindInvalid)).With("user_id", claims.UserID.String()).
				Errorf("email address changed since the request")
		case errors.Is(err, ErrAlreadyExists):
			return oops.Code(string(KindInvalid)).With("user_id", claims.UserID.String()).
				Errorf("email already in use")
		case err != nil:
			return oops.Code("EMAIL_CHANGE_FAILED").With("user_id", claims.UserID.String()).Wrap(err)
		}
		_, err = c.sessions.DeleteAllSessions(ctx, claims.UserID)
		return err
	}
	return c.redeem(ctx, r, rule, effect)
}

// RequestPasswordReset sends a RESET_PASS token when email belongs to a
// local account. Unknown addresses return an empty token and no error so
// callers cannot probe which addresses exist.
func (c *Confirmations) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", fail(KindMissingInputs, "email is required")
	}
	user, err := c.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").With("operation", "get user by email").Wrap(err)
	}
	if !user.IsLocal() {
		c.logger.InfoContext(ctx, "password reset requested for federated account",
			"user_id", user.ID.String(), "provider", user.Provider)
		return "", nil
	}

	signed, err := c.codec.Create(token.ResetPassword, token.ResetPasswordClaims{UserID: user.ID})
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").With("operation", "sign token").Wrap(err)
	}
	if err := c.notify(ctx, Notification{Kind: NotifyPasswordReset, UserID: user.ID, Email: user.Email, Token: signed}); err != nil {
		return "", err
	}
	return signed, nil
}

// ResetPassword redeems a RESET_PASS token, stores the new password, clears
// any lockout and signs the user out everywhere.
func (c *Confirmations) ResetPassword(ctx context.Context, raw, newPassword string) error {
	if raw == "" || newPassword == "" {
		return fail(KindMissingInputs, "token and new password are required")
	}
	claims, err := c.codec.DecodeResetPassword(raw)
	if err != nil {
		return malformed(FlowResetPassword, err)
	}

	r := redemption{flow: FlowResetPassword, raw: raw, typ: token.ResetPassword, holder: claims.UserID, stamp: claims.Stamp}
	rule := func(ctx context.Context) error {
		user, err := c.loadUser(ctx, claims.UserID)
		if err != nil {
			return err
		}
		if !user.IsLocal() {
			return fail(KindInvalid, "account has no password")
		}
		return nil
	}
	effect := func(ctx context.Context) error {
		hash, err := c.hasher.Hash(newPassword)
		if err != nil {
			return oops.Code("RESET_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
		}
		if err := c.users.UpdatePasswordHash(ctx, claims.UserID, hash); err != nil {
			return oops.Code("RESET_PASSWORD_FAILED").With("operation", "update password").Wrap(err)
		}
		if err := c.users.UpdateLoginState(ctx, claims.UserID, 0, nil); err != nil {
			return oops.Code("RESET_PASSWORD_FAILED").With("operation", "clear lockout").Wrap(err)
		}
		_, err = c.sessions.DeleteAllSessions(ctx, claims.UserID)
		return err
	}
	return c.redeem(ctx, r, rule, effect)
}

// DeletionOutcome reports what RequestAccountDeletion did.
type DeletionOutcome struct {
	// Deleted is true when a local account was removed immediately.
	Deleted bool
	// Token is the USER_DELETION_VERIFY token sent to federated accounts.
	Token string
}

// RequestAccountDeletion deletes a local account after checking its
// password. Federated accounts have no password; they are sent a
// USER_DELETION_VERIFY token instead.
func (c *Confirmations) RequestAccountDeletion(ctx context.Context, userID ulid.ULID, password string) (*DeletionOutcome, error) {
	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.IsLocal() {
		signed, err := c.codec.Create(token.UserDeletion, token.DeletionClaims{UserID: user.ID})
		if err != nil {
			return nil, oops.Code("DELETION_REQUEST_FAILED").Wrap(err)
		}
		if err := c.notify(ctx, Notification{Kind: NotifyAccountDeletion, UserID: user.ID, Email: user.Email, Token: signed}); err != nil {
			return nil, err
		}
		return &DeletionOutcome{Token: signed}, nil
	}

	if password == "" {
		return nil, fail(KindMissingInputs, "password is required")
	}
	ok, err := c.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, oops.Code("DELETION_REQUEST_FAILED").With("operation", "verify password").Wrap(err)
	}
	if !ok {
		return nil, fail(KindInvalidCredentials, "invalid password")
	}
	if err := c.uow.Do(ctx, func(ctx context.Context) error { return c.deleteUser(ctx, userID) }); err != nil {
		return nil, err
	}
	return &DeletionOutcome{Deleted: true}, nil
}

// ConfirmAccountDeletion redeems a USER_DELETION_VERIFY token and deletes
// the account with all of its sessions.
func (c *Confirmations) ConfirmAccountDeletion(ctx context.Context, raw string) error {
	if raw == "" {
		return fail(KindMissingInputs, "token is required")
	}
	claims, err := c.codec.DecodeDeletion(raw)
	if err != nil {
		return malformed(FlowUserDeletion, err)
	}

	r := redemption{flow: FlowUserDeletion, raw: raw, typ: token.UserDeletion, holder: claims.UserID, stamp: claims.Stamp}
	rule := func(ctx context.Context) error {
		_, err := c.loadUser(ctx, claims.UserID)
		return err
	}
	effect := func(ctx context.Context) error {
		return c.deleteUser(ctx, claims.UserID)
	}
	return c.redeem(ctx, r, rule, effect)
}

func (c *Confirmations) deleteUser(ctx context.Context, userID ulid.ULID) error {
	if _, err := c.sessions.DeleteAllSessions(ctx, userID); err != nil {
		return err
	}
	err := c.users.Delete(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return oops.Code(string(KindDoesNotExist)).With("user_id", userID.String()).Errorf("user does not exist")
	}
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

// ConfirmDevice redeems a DEVICE_VERIFY token together with the emailed
// code, trusts the device and signs the user in on it.
func (c *Confirmations) ConfirmDevice(ctx context.Context, raw, code, deviceID string) (*IssuedSession, error) {
	if deviceID == "" {
		return nil, fail(KindDeviceHeaderMissing, "device id is required")
	}
	if raw == "" || code == "" {
		return nil, fail(KindMissingInputs, "token and code are required")
	}
	claims, err := c.codec.DecodeDeviceVerify(raw)
	if err != nil {
		return nil, malformed(FlowDeviceVerify, err)
	}

	var issued *IssuedSession
	r := redemption{flow: FlowDeviceVerify, raw: raw, typ: token.DeviceVerify, holder: claims.UserID, stamp: claims.Stamp}
	effect := func(ctx context.Context) error {
		err := c.devices.VerifyDeviceID(ctx, claims.UserID, code, deviceID, claims.DeviceVerificationID)
		if errors.Is(err, ErrChallengeVerified) {
			// A concurrent redemption of the same token won.
			return oops.Code(string(KindRequestAlreadyUsed)).With("flow", FlowDeviceVerify).Errorf("request already used")
		}
		if err != nil {
			return err
		}
		issued, err = c.sessions.CreateSession(ctx, claims.UserID)
		return err
	}
	if err := c.redeem(ctx, r, nil, effect); err != nil {
		return nil, err
	}
	return issued, nil
}
