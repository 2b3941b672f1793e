// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the credential lifecycle: sessions with silent
// refresh, single-use confirmation tokens and device verification.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewSession - a Session whose timestamps come from its refresh token
//   - NewBlacklistedToken - a redemption receipt for a single-use token
//   - NewDeviceVerification - a pending device challenge
//   - NewUser - an account with a validated email
//
// Repository implementations receive pre-validated types from these
// constructors. Repositories report missing rows with ErrNotFound and
// natural-key collisions with ErrAlreadyExists.
//
// # Services
//
//   - SessionManager - create, look up, revoke and refresh sessions
//   - Guard - at-most-once redemption of confirmation tokens
//   - DeviceVerifier - device challenges and trusted devices
//   - Confirmations - email verification, email change, password reset,
//     device confirmation and account deletion
//   - Authenticator - registration, login and logout
//   - Sweeper - background removal of expired records
//
// # Errors
//
// Failures meant for callers carry a Kind as their oops code; KindOf
// classifies any error and treats everything else as KindInternal.
package auth
