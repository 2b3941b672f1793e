// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ProviderLocal marks accounts that sign in with a password. Any other
// provider name is a federated identity.
const ProviderLocal = "local"

// MaxEmailLength bounds stored addresses.
const MaxEmailLength = 254

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User is the account record the credential flows read and update.
type User struct {
	ID              ulid.ULID
	Email           string
	PasswordHash    string
	Provider        string
	EmailVerifiedAt *time.Time
	FailedAttempts  int
	LockedUntil     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewUser creates a validated User. Local accounts need a password hash.
func NewUser(email, passwordHash, provider string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if provider == "" {
		provider = ProviderLocal
	}
	if provider == ProviderLocal && passwordHash == "" {
		return nil, oops.Code("USER_INVALID_PASSWORD").Errorf("local accounts need a password")
	}
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Provider:     provider,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the rough shape of an address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("USER_INVALID_EMAIL").With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email is not a valid address")
	}
	return nil
}

// IsLocal reports whether the account signs in with a password.
func (u *User) IsLocal() bool {
	return u.Provider == ProviderLocal
}

// IsEmailVerified reports whether the current address was confirmed.
func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// UserRepository manages user persistence. Each method serves one flow.
type UserRepository interface {
	// Create stores a new user. Returns ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by normalized email. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateLoginState stores the failure counter and lockout.
	UpdateLoginState(ctx context.Context, id ulid.ULID, failedAttempts int, lockedUntil *time.Time) error

	// RecordLoginFailure atomically increments the failure counter and sets
	// the lockout to lockUntil once the new count reaches threshold (a
	// threshold of zero never locks). Returns the new count and lockout.
	// Returns ErrNotFound if absent.
	RecordLoginFailure(ctx context.Context, id ulid.ULID, threshold int, lockUntil time.Time) (int, *time.Time, error)

	// UpdatePasswordHash replaces the password hash.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error

	// MarkEmailVerified sets email_verified_at when the user's address still
	// equals email. Returns ErrNotFound otherwise.
	MarkEmailVerified(ctx context.Context, id ulid.ULID, email string, at time.Time) error

	// ChangeEmail swaps oldEmail for newEmail and marks it verified at the
	// given time. Returns ErrNotFound if the address is no longer oldEmail,
	// ErrAlreadyExists if newEmail belongs to another user.
	ChangeEmail(ctx context.Context, id ulid.ULID, oldEmail, newEmail string, at time.Time) error

	// Delete removes the user. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error
}
