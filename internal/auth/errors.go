// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned by repositories when an insert collides with a
// natural key such as (user, session) or (holder, token).
var ErrAlreadyExists = errors.New("already exists")

// Kind is the stable, machine-readable classification of an auth failure.
// It is carried as the oops error code.
type Kind string

// Error kinds surfaced to callers.
const (
	KindAuthorizationHeaderMissing Kind = "AUTHORIZATION_HEADER_MISSING"
	KindUserNotAuthorized          Kind = "USER_NOT_AUTHORIZED"
	KindUserSessionDoesNotExist    Kind = "USER_SESSION_DOES_NOT_EXIST"
	KindUserSessionExpired         Kind = "USER_SESSION_EXPIRED"
	KindRequestExpired             Kind = "REQUEST_EXPIRED"
	KindRequestAlreadyUsed         Kind = "REQUEST_ALREADY_USED"
	KindDeviceHeaderMissing        Kind = "DEVICE_HEADER_MISSING"
	KindInvalid                    Kind = "INVALID"
	KindDoesNotExist               Kind = "DOES_NOT_EXIST"
	KindMissingInputs              Kind = "MISSING_INPUTS"
	KindInvalidCredentials         Kind = "INVALID_CREDENTIALS"
	KindAccountLocked              Kind = "ACCOUNT_LOCKED"
	KindAlreadyLoggedIn            Kind = "ALREADY_LOGGED_IN"
	KindInternal                   Kind = "INTERNAL_SERVER_ERROR"
)

// Kinds lists every kind.
func Kinds() []Kind {
	return []Kind{
		KindAuthorizationHeaderMissing,
		KindUserNotAuthorized,
		KindUserSessionDoesNotExist,
		KindUserSessionExpired,
		KindRequestExpired,
		KindRequestAlreadyUsed,
		KindDeviceHeaderMissing,
		KindInvalid,
		KindDoesNotExist,
		KindMissingInputs,
		KindInvalidCredentials,
		KindAccountLocked,
		KindAlreadyLoggedIn,
		KindInternal,
	}
}

// KindOf classifies err. Errors without a known kind code, including plain
// errors and repository failures, are KindInternal.
func KindOf(err error) Kind {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	code := Kind(fmt.Sprint(oopsErr.Code()))
	for _, k := range Kinds() {
		if k == code {
			return k
		}
	}
	return KindInternal
}

// fail builds an error of the given kind.
func fail(kind Kind, format string, args ...any) error {
	return oops.Code(string(kind)).Errorf(format, args...)
}
