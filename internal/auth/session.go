// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session is one signed-in client instance. The refresh token never leaves
// the server; CreatedAt and ExpiresAt mirror its iat and exp claims.
type Session struct {
	UserID       ulid.ULID
	SessionID    string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// NewSession creates a validated Session from the claims of its refresh token.
func NewSession(userID ulid.ULID, sessionID, refreshToken string, issuedAt, expiresAt time.Time) (*Session, error) {
	if userID.IsZero() {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if sessionID == "" {
		return nil, oops.Code("SESSION_INVALID_ID").Errorf("session ID cannot be empty")
	}
	if refreshToken == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("refresh token cannot be empty")
	}
	if !expiresAt.After(issuedAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("created_at", issuedAt).
			With("expires_at", expiresAt).
			Errorf("session must expire after it is created")
	}
	return &Session{
		UserID:       userID,
		SessionID:    sessionID,
		RefreshToken: refreshToken,
		CreatedAt:    issuedAt,
		ExpiresAt:    expiresAt,
	}, nil
}

// IsExpiredAt reports whether the session has expired at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// IssuedSession is what a caller receives after signing in.
type IssuedSession struct {
	UserID      ulid.ULID
	SessionID   string
	AccessToken string
	ExpiresAt   time.Time
}

// SessionRepository persists sessions keyed by (user, session id).
type SessionRepository interface {
	// Create stores a new session. Returns ErrAlreadyExists when the
	// (user, session id) pair is taken.
	Create(ctx context.Context, session *Session) error

	// Get retrieves one session. Returns ErrNotFound if absent.
	Get(ctx context.Context, userID ulid.ULID, sessionID string) (*Session, error)

	// ListByUser returns every session of a user, newest first.
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Session, error)

	// Delete removes one session. Returns ErrNotFound if absent.
	Delete(ctx context.Context, userID ulid.ULID, sessionID string) error

	// DeleteByUser removes every session of a user and returns the count.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes sessions that expired before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
