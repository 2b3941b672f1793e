// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/authengine/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("TOKEN_MALFORMED").Errorf("test error")
	// Should not fail
	errutil.AssertErrorCode(t, err, "TOKEN_MALFORMED")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("flow", "reset_password").Errorf("test error")
	// Should not fail
	errutil.AssertErrorContext(t, err, "flow", "reset_password")
}
