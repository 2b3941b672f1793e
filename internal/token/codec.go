// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package token signs, verifies and decodes the typed HS256 tokens used for
// sessions and single-use confirmations.
//
// Verification and decoding are deliberately separate: Verify answers a yes/no
// question about signature and expiry, while the Decode* methods extract the
// payload without checking the signature so callers can branch on validity
// before trusting any claim.
package token

import (
	"bytes"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Codec creates and validates tokens for all seven types. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	keys map[Type]Key
	now  func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec builds a Codec. A key is required for every type, secrets must be
// at least MinSecretLength bytes and pairwise distinct, and lifespans must be
// positive.
func NewCodec(keys map[Type]Key, opts ...Option) (*Codec, error) {
	c := &Codec{
		keys: make(map[Type]Key, len(keys)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	seen := make([][]byte, 0, len(keys))
	for _, t := range Types() {
		key, ok := keys[t]
		if !ok {
			return nil, oops.Code("TOKEN_KEY_MISSING").With("type", t.String()).
				Errorf("no key configured for %s tokens", t)
		}
		if len(key.Secret) < MinSecretLength {
			return nil, oops.Code("TOKEN_KEY_INVALID").With("type", t.String()).
				Errorf("%s secret must be at least %d bytes", t, MinSecretLength)
		}
		if key.Lifespan <= 0 {
			return nil, oops.Code("TOKEN_KEY_INVALID").With("type", t.String()).
				Errorf("%s lifespan must be positive", t)
		}
		for _, other := range seen {
			if bytes.Equal(other, key.Secret) {
				return nil, oops.Code("TOKEN_KEY_INVALID").With("type", t.String()).
					Errorf("%s secret is shared with another token type", t)
			}
		}
		seen = append(seen, key.Secret)
		c.keys[t] = Key{Secret: bytes.Clone(key.Secret), Lifespan: key.Lifespan}
	}
	return c, nil
}

// Lifespan returns the configured lifespan for t.
func (c *Codec) Lifespan(t Type) time.Duration {
	return c.keys[t].Lifespan
}

// Create signs p as a token of type t with iat set to now and exp set to now
// plus the type's lifespan.
func (c *Codec) Create(t Type, p Payload) (string, error) {
	key, ok := c.keys[t]
	if !ok {
		return "", oops.Code("TOKEN_TYPE_UNKNOWN").With("type", int(t)).Errorf("unknown token type")
	}
	if p == nil || !p.accepts(t) {
		return "", oops.Code("TOKEN_PAYLOAD_INVALID").With("type", t.String()).
			Errorf("payload %T cannot be signed as %s", p, t)
	}
	if err := p.validate(); err != nil {
		return "", oops.With("type", t.String()).Wrap(err)
	}

	now := c.now()
	claims := p.stamp(jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(key.Lifespan)),
	})

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.Secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("type", t.String()).Wrap(err)
	}
	return signed, nil
}

// Verify reports whether raw carries a valid HS256 signature for t's secret
// and has not passed its exp claim. It never fails with an error.
func (c *Codec) Verify(raw string, t Type) bool {
	key, ok := c.keys[t]
	if !ok || raw == "" {
		return false
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	_, err := parser.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return key.Secret, nil
	})
	return err == nil
}

type decodable interface {
	jwt.Claims
	validate() error
}

var unverified = jwt.NewParser()

// decode fills claims from raw without checking the signature.
func decode(raw string, claims decodable) error {
	if raw == "" {
		return oops.Code("TOKEN_MALFORMED").Errorf("token is empty")
	}
	if _, _, err := unverified.ParseUnverified(raw, claims); err != nil {
		return oops.Code("TOKEN_MALFORMED").Wrap(err)
	}
	if err := claims.validate(); err != nil {
		return oops.Code("TOKEN_MALFORMED").Errorf("token payload incomplete: %v", err)
	}
	iat, _ := claims.GetIssuedAt()       //nolint:errcheck // RegisteredClaims getters never fail
	exp, _ := claims.GetExpirationTime() //nolint:errcheck // RegisteredClaims getters never fail
	if iat == nil || exp == nil {
		return oops.Code("TOKEN_MALFORMED").Errorf("token has no iat/exp claims")
	}
	return nil
}

// DecodeSession extracts the payload of an ACCESS or REFRESH token.
func (c *Codec) DecodeSession(raw string) (SessionClaims, error) {
	var claims SessionClaims
	err := decode(raw, &claims)
	return claims, err
}

// DecodeEmailVerify extracts the payload of an EMAIL_VERIFY token.
func (c *Codec) DecodeEmailVerify(raw string) (EmailVerifyClaims, error) {
	var claims EmailVerifyClaims
	err := decode(raw, &claims)
	return claims, err
}

// DecodeEmailChange extracts the payload of an EMAIL_CHANGE token.
func (c *Codec) DecodeEmailChange(raw string) (EmailChangeClaims, error) {
	var claims EmailChangeClaims
	err := decode(raw, &claims)
	return claims, err
}

// DecodeResetPassword extracts the payload of a RESET_PASS token.
func (c *Codec) DecodeResetPassword(raw string) (ResetPasswordClaims, error) {
	var claims ResetPasswordClaims
	err := decode(raw, &claims)
	return claims, err
}

// DecodeDeviceVerify extracts the payload of a DEVICE_VERIFY token.
func (c *Codec) DecodeDeviceVerify(raw string) (DeviceVerifyClaims, error) {
	var claims DeviceVerifyClaims
	err := decode(raw, &claims)
	return claims, err
}

// DecodeDeletion extracts the payload of a USER_DELETION_VERIFY token.
func (c *Codec) DecodeDeletion(raw string) (DeletionClaims, error) {
	var claims DeletionClaims
	err := decode(raw, &claims)
	return claims, err
}
