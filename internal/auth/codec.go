// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "github.com/holomush/authengine/internal/token"

// TokenCodec is the subset of token.Codec the services depend on.
type TokenCodec interface {
	Create(t token.Type, p token.Payload) (string, error)
	Verify(raw string, t token.Type) bool
	DecodeSession(raw string) (token.SessionClaims, error)
	DecodeEmailVerify(raw string) (token.EmailVerifyClaims, error)
	DecodeEmailChange(raw string) (token.EmailChangeClaims, error)
	DecodeResetPassword(raw string) (token.ResetPasswordClaims, error)
	DecodeDeviceVerify(raw string) (token.DeviceVerifyClaims, error)
	DecodeDeletion(raw string) (token.DeletionClaims, error)
}

var _ TokenCodec = (*token.Codec)(nil)
