// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Payload is the typed body of a token. Only the claim types in this package
// implement it.
type Payload interface {
	accepts(t Type) bool
	validate() error
	stamp(rc jwt.RegisteredClaims) jwt.Claims
}

// Stamp holds the iat/exp claims injected by the codec.
type Stamp struct {
	jwt.RegisteredClaims
}

// Issued returns the iat claim, or the zero time when absent.
func (s Stamp) Issued() time.Time {
	if s.IssuedAt == nil {
		return time.Time{}
	}
	return s.IssuedAt.Time
}

// Expires returns the exp claim, or the zero time when absent.
func (s Stamp) Expires() time.Time {
	if s.ExpiresAt == nil {
		return time.Time{}
	}
	return s.ExpiresAt.Time
}

func missingField(field string) error {
	return oops.Code("TOKEN_PAYLOAD_INVALID").With("field", field).Errorf("%s is required", field)
}

// SessionClaims is the payload of ACCESS and REFRESH tokens.
type SessionClaims struct {
	UserID    ulid.ULID `json:"userId"`
	SessionID string    `json:"sessionId"`
	Stamp
}

func (c SessionClaims) accepts(t Type) bool { return t == Access || t == Refresh }

func (c SessionClaims) validate() error {
	if c.UserID.IsZero() {
		return missingField("userId")
	}
	if c.SessionID == "" {
		return missingField("sessionId")
	}
	return nil
}

func (c SessionClaims) stamp(rc jwt.RegisteredClaims) jwt.Claims {
	c.RegisteredClaims = rc
	return c
}

// EmailVerifyClaims is the payload of EMAIL_VERIFY tokens.
type EmailVerifyClaims struct {
	UserID ulid.ULID `json:"userId"`
	Email  string    `json:"email"`
	Stamp
}

func (c EmailVerifyClaims) accepts(t Type) bool { return t == EmailVerify }

func (c EmailVerifyClaims) validate() error {
	if c.UserID.IsZero() {
		return missingField("userId")
	}
	if c.Email == "" {
		return missingField("email")
	}
	return nil
}

func (c EmailVerifyClaims) stamp(rc jwt.RegisteredClaims) jwt.Claims {
	c.RegisteredClaims = rc
	return c
}

// EmailChangeClaims is the payload of EMAIL_CHANGE tokens.
type EmailChangeClaims struct {
	UserID   ulid.ULID `json:"userId"`
	OldEmail string    `json:"oldEmail"`
	NewEmail string    `json:"newEmail"`
	Stamp
}

func (c EmailChangeClaims) accepts(t Type) bool { return t == EmailChange }

func (c EmailChangeClaims) validate() error {
	switch {
	case c.UserID.IsZero():
		return missingField("userId")
	case c.OldEmail == "":
		return missingField("oldEmail")
	case c.NewEmail == "":
		return missingField("newEmail")
	}
	return nil
}

func (c EmailChangeClaims) stamp(rc jwt.RegisteredClaims) jwt.Claims {
	c.RegisteredClaims = rc
	return c
}

// ResetPasswordClaims is the payload of RESET_PASS tokens.
type ResetPasswordClaims struct {
	UserID ulid.ULID `json:"userId"`
	Stamp
}

func (c ResetPasswordClaims) accepts(t Type) bool { return t == ResetPassword }

func (c ResetPasswordClaims) validate() error {
	if c.UserID.IsZero() {
		return missingField("userId")
	}
	return nil
}

func (c ResetPasswordClaims) stamp(rc jwt.RegisteredClaims) jwt.Claims {
	c.RegisteredClaims = rc
	return c
}

// DeviceVerifyClaims is the payload of DEVICE_VERIFY tokens. It binds the
// token to one device verification challenge.
type DeviceVerifyClaims struct {
	UserID               ulid.ULID `json:"userId"`
	DeviceVerificationID ulid.ULID `json:"deviceVerificationId"`
	Stamp
}

func (c DeviceVerifyClaims) accepts(t Type) bool { return t == DeviceVerify }

func (c DeviceVerifyClaims) validate() error {
	if c.UserID.IsZero() {
		return missingField("userId")
	}
	if c.DeviceVerificationID.IsZero() {
		return missingField("deviceVerificationId")
	}
	return nil
}

func (c DeviceVerifyClaims) stamp(rc jwt.RegisteredClaims) jwt.Claims {
	c.RegisteredClaims = rc
	return c
}

// DeletionClaims is the payload of USER_DELETION_VERIFY tokens.
type DeletionClaims struct {
	UserID ulid.ULID `json:"userId"`
	Stamp
}

func (c DeletionClaims) accepts(t Type) bool { return t == UserDeletion }

func (c DeletionClaims) validate() error {
	if c.UserID.IsZero() {
		return missingField("userId")
	}
	return nil
}

func (c DeletionClaims) stamp(rc jwt.RegisteredClaims) jwt.Claims {
	c.RegisteredClaims = rc
	return c
}
