// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package token

import (
	"strings"
	"time"

	"github.com/samber/oops"
)

// Type identifies a category of signed token. Every type is signed with its
// own secret and carries its own lifespan.
type Type int

// Token types.
const (
	Access Type = iota + 1
	Refresh
	EmailVerify
	EmailChange
	ResetPassword
	DeviceVerify
	UserDeletion
)

var typeNames = map[Type]string{
	Access:        "ACCESS",
	Refresh:       "REFRESH",
	EmailVerify:   "EMAIL_VERIFY",
	EmailChange:   "EMAIL_CHANGE",
	ResetPassword: "RESET_PASS",
	DeviceVerify:  "DEVICE_VERIFY",
	UserDeletion:  "USER_DELETION_VERIFY",
}

// Types returns every token type in declaration order.
func Types() []Type {
	return []Type{Access, Refresh, EmailVerify, EmailChange, ResetPassword, DeviceVerify, UserDeletion}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseType resolves a type name such as "ACCESS" or "reset_pass".
func ParseType(name string) (Type, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == upper {
			return t, nil
		}
	}
	return 0, oops.Code("TOKEN_TYPE_UNKNOWN").With("type", name).Errorf("unknown token type %q", name)
}

// MinSecretLength is the shortest accepted HMAC secret in bytes.
const MinSecretLength = 32

// Key is the signing material and lifespan for one token type.
type Key struct {
	Secret   []byte
	Lifespan time.Duration
}
