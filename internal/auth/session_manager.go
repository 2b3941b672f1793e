// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/token"
)

// SessionManager creates, looks up and revokes sessions and re-derives
// access tokens from stored refresh tokens.
type SessionManager struct {
	sessions SessionRepository
	codec    TokenCodec
	ids      *IDGenerator
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(sessions SessionRepository, codec TokenCodec, ids *IDGenerator) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if codec == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if ids == nil {
		return nil, oops.Errorf("session id generator is required")
	}
	return &SessionManager{sessions: sessions, codec: codec, ids: ids}, nil
}

// CreateSession persists a new session for the user and returns a fresh
// access token bound to it.
func (m *SessionManager) CreateSession(ctx context.Context, userID ulid.ULID) (*IssuedSession, error) {
	sessionID, err := m.ids.Generate()
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("operation", "generate session id").Wrap(err)
	}

	identity := token.SessionClaims{UserID: userID, SessionID: sessionID}
	refresh, err := m.codec.Create(token.Refresh, identity)
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("operation", "sign refresh token").Wrap(err)
	}
	claims, err := m.codec.DecodeSession(refresh)
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("operation", "decode refresh token").Wrap(err)
	}

	session, err := NewSession(userID, sessionID, refresh, claims.Issued(), claims.Expires())
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("operation", "build session").Wrap(err)
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	access, err := m.codec.Create(token.Access, identity)
	if err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("operation", "sign access token").Wrap(err)
	}

	SessionsIssued.Inc()
	return &IssuedSession{
		UserID:      userID,
		SessionID:   sessionID,
		AccessToken: access,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// DeleteSession removes exactly one session.
func (m *SessionManager) DeleteSession(ctx context.Context, userID ulid.ULID, sessionID string) error {
	err := m.sessions.Delete(ctx, userID, sessionID)
	if errors.Is(err, ErrNotFound) {
		return oops.Code(string(KindDoesNotExist)).
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Errorf("session does not exist")
	}
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Wrap(err)
	}
	return nil
}

// DeleteAllSessions signs the user out everywhere.
func (m *SessionManager) DeleteAllSessions(ctx context.Context, userID ulid.ULID) (int64, error) {
	n, err := m.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_ALL_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return n, nil
}

// GetSession returns the stored refresh token of a session.
func (m *SessionManager) GetSession(ctx context.Context, userID ulid.ULID, sessionID string) (string, error) {
	session, err := m.sessions.Get(ctx, userID, sessionID)
	if errors.Is(err, ErrNotFound) {
		return "", oops.Code(string(KindUserSessionDoesNotExist)).
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Errorf("user session does not exist")
	}
	if err != nil {
		return "", oops.Code("SESSION_GET_FAILED").
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Wrap(err)
	}
	return session.RefreshToken, nil
}

// ListSessions returns the user's sessions.
func (m *SessionManager) ListSessions(ctx context.Context, userID ulid.ULID) ([]*Session, error) {
	sessions, err := m.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("SESSION_LIST_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return sessions, nil
}

// Refresh mints a new access token from the session's stored refresh token.
// A refresh token that no longer verifies deletes the session.
func (m *SessionManager) Refresh(ctx context.Context, userID ulid.ULID, sessionID string) (string, error) {
	refresh, err := m.GetSession(ctx, userID, sessionID)
	if err != nil {
		SessionRefreshes.WithLabelValues(OutcomeRejected).Inc()
		return "", err
	}

	if !m.codec.Verify(refresh, token.Refresh) {
		if err := m.sessions.Delete(ctx, userID, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
			SessionRefreshes.WithLabelValues(OutcomeError).Inc()
			return "", oops.Code("SESSION_REFRESH_FAILED").
				With("operation", "delete expired session").
				With("session_id", sessionID).
				Wrap(err)
		}
		SessionRefreshes.WithLabelValues(OutcomeExpired).Inc()
		return "", oops.Code(string(KindUserSessionExpired)).
			With("user_id", userID.String()).
			With("session_id", sessionID).
			Errorf("user session expired")
	}

	claims, err := m.codec.DecodeSession(refresh)
	if err != nil {
		SessionRefreshes.WithLabelValues(OutcomeError).Inc()
		return "", oops.Code("SESSION_REFRESH_FAILED").With("operation", "decode refresh token").Wrap(err)
	}
	access, err := m.codec.Create(token.Access, token.SessionClaims{UserID: claims.UserID, SessionID: claims.SessionID})
	if err != nil {
		SessionRefreshes.WithLabelValues(OutcomeError).Inc()
		return "", oops.Code("SESSION_REFRESH_FAILED").With("operation", "sign access token").Wrap(err)
	}

	SessionRefreshes.WithLabelValues(OutcomeRefreshed).Inc()
	return access, nil
}
