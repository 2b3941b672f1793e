// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db *DB
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO sessions (user_id, session_id, refresh_token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.UserID.String(),
		session.SessionID,
		session.RefreshToken,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("SESSION_EXISTS").
			With("user_id", session.UserID.String()).
			Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves one session.
func (r *SessionRepository) Get(ctx context.Context, userID ulid.ULID, sessionID string) (*auth.Session, error) {
	row := r.db.conn(ctx).QueryRow(ctx, `
		SELECT user_id, session_id, refresh_token, created_at, expires_at
		FROM sessions
		WHERE user_id = $1 AND session_id = $2
	`, userID.String(), sessionID)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Wrap(err)
	}
	return session, nil
}

// ListByUser returns every session of a user, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT user_id, session_id, refresh_token, created_at, expires_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").With("user_id", userID.String()).Wrap(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").With("user_id", userID.String()).Wrap(err)
	}
	return sessions, nil
}

// Delete removes one session.
func (r *SessionRepository) Delete(ctx context.Context, userID ulid.ULID, sessionID string) error {
	result, err := r.db.conn(ctx).Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1 AND session_id = $2
	`, userID.String(), sessionID)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes every session of a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_BY_USER_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes sessions that expired before the cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		userIDStr string
		session   auth.Session
	)
	err := row.Scan(&userIDStr, &session.SessionID, &session.RefreshToken, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}
	session.UserID, err = ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	return &session, nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
