// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/auth/mocks"
	"github.com/holomush/authengine/internal/token"
)

func newManager(t *testing.T, repo auth.SessionRepository) (*auth.SessionManager, *token.Codec, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	ids, err := auth.NewIDGenerator("abc123", 12)
	require.NoError(t, err)
	mgr, err := auth.NewSessionManager(repo, codec, ids)
	require.NoError(t, err)
	return mgr, codec, clock
}

func TestNewSessionManager_NilDependencies(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	ids, err := auth.NewIDGenerator(auth.DefaultSessionIDAlphabet, auth.DefaultSessionIDLength)
	require.NoError(t, err)

	_, err = auth.NewSessionManager(nil, codec, ids)
	assert.ErrorContains(t, err, "sessions repository is required")
	_, err = auth.NewSessionManager(mocks.NewMockSessionRepository(t), nil, ids)
	assert.ErrorContains(t, err, "token codec is required")
	_, err = auth.NewSessionManager(mocks.NewMockSessionRepository(t), codec, nil)
	assert.ErrorContains(t, err, "session id generator is required")
}

func TestSessionManager_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("persists refresh token and returns access token", func(t *testing.T) {
		repo := mocks.NewMockSessionRepository(t)
		mgr, codec, clock := newManager(t, repo)
		userID := ulid.Make()

		var stored *auth.Session
		repo.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*auth.Session) }).
			Return(nil)

		issued, err := mgr.CreateSession(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, stored)

		assert.Equal(t, userID, stored.UserID)
		assert.Len(t, stored.SessionID, 12)
		assert.Equal(t, stored.SessionID, issued.SessionID)
		assert.True(t, codec.Verify(stored.RefreshToken, token.Refresh))
		assert.Equal(t, clock.Now(), stored.CreatedAt)
		assert.Equal(t, clock.Now().Add(testLifespans[token.Refresh]), stored.ExpiresAt)

		assert.True(t, codec.Verify(issued.AccessToken, token.Access))
		claims, err := codec.DecodeSession(issued.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, stored.SessionID, claims.SessionID)
	})

	t.Run("propagates persistence failure", func(t *testing.T) {
		repo := mocks.NewMockSessionRepository(t)
		mgr, _, _ := newManager(t, repo)
		repo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

		issued, err := mgr.CreateSession(ctx, ulid.Make())
		assert.Nil(t, issued)
		assertKind(t, err, auth.KindInternal)
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestSessionManager_DeleteSession(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	repo := mocks.NewMockSessionRepository(t)
	mgr, _, _ := newManager(t, repo)
	repo.On("Delete", ctx, userID, "present").Return(nil).Once()
	repo.On("Delete", ctx, userID, "absent").Return(auth.ErrNotFound).Once()

	require.NoError(t, mgr.DeleteSession(ctx, userID, "present"))
	assertKind(t, mgr.DeleteSession(ctx, userID, "absent"), auth.KindDoesNotExist)
}

func TestSessionManager_DeleteAllSessions(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	repo := mocks.NewMockSessionRepository(t)
	mgr, _, _ := newManager(t, repo)
	repo.On("DeleteByUser", ctx, userID).Return(int64(3), nil)

	n, err := mgr.DeleteAllSessions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSessionManager_GetSession(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	repo := mocks.NewMockSessionRepository(t)
	mgr, _, _ := newManager(t, repo)
	repo.On("Get", ctx, userID, "s1").Return(&auth.Session{UserID: userID, SessionID: "s1", RefreshToken: "rt"}, nil)
	repo.On("Get", ctx, userID, "s2").Return(nil, auth.ErrNotFound)
	repo.On("Get", ctx, userID, "s3").Return(nil, errors.New("timeout"))

	refresh, err := mgr.GetSession(ctx, userID, "s1")
	require.NoError(t, err)
	assert.Equal(t, "rt", refresh)

	_, err = mgr.GetSession(ctx, userID, "s2")
	assertKind(t, err, auth.KindUserSessionDoesNotExist)

	_, err = mgr.GetSession(ctx, userID, "s3")
	assertKind(t, err, auth.KindInternal)
}

func TestSessionManager_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("valid refresh token mints access token", func(t *testing.T) {
		repo := mocks.NewMockSessionRepository(t)
		mgr, codec, _ := newManager(t, repo)
		userID := ulid.Make()
		refresh, err := codec.Create(token.Refresh, token.SessionClaims{UserID: userID, SessionID: "s1"})
		require.NoError(t, err)
		repo.On("Get", ctx, userID, "s1").Return(&auth.Session{UserID: userID, SessionID: "s1", RefreshToken: refresh}, nil)

		access, err := mgr.Refresh(ctx, userID, "s1")
		require.NoError(t, err)
		assert.True(t, codec.Verify(access, token.Access))
		claims, err := codec.DecodeSession(access)
		require.NoError(t, err)
		assert.Equal(t, "s1", claims.SessionID)
	})

	t.Run("expired refresh token deletes session", func(t *testing.T) {
		repo := mocks.NewMockSessionRepository(t)
		mgr, codec, clock := newManager(t, repo)
		userID := ulid.Make()
		refresh, err := codec.Create(token.Refresh, token.SessionClaims{UserID: userID, SessionID: "s1"})
		require.NoError(t, err)
		clock.Advance(testLifespans[token.Refresh] + time.Second)

		repo.On("Get", ctx, userID, "s1").Return(&auth.Session{UserID: userID, SessionID: "s1", RefreshToken: refresh}, nil)
		repo.On("Delete", ctx, userID, "s1").Return(nil).Once()

		_, err = mgr.Refresh(ctx, userID, "s1")
		assertKind(t, err, auth.KindUserSessionExpired)
	})

	t.Run("tampered refresh token deletes session", func(t *testing.T) {
		repo := mocks.NewMockSessionRepository(t)
		mgr, codec, _ := newManager(t, repo)
		userID := ulid.Make()
		access, err := codec.Create(token.Access, token.SessionClaims{UserID: userID, SessionID: "s1"})
		require.NoError(t, err)

		repo.On("Get", ctx, userID, "s1").Return(&auth.Session{UserID: userID, SessionID: "s1", RefreshToken: access}, nil)
		repo.On("Delete", ctx, userID, "s1").Return(nil).Once()

		_, err = mgr.Refresh(ctx, userID, "s1")
		assertKind(t, err, auth.KindUserSessionExpired)
	})

	t.Run("missing session", func(t *testing.T) {
		repo := mocks.NewMockSessionRepository(t)
		mgr, _, _ := newManager(t, repo)
		userID := ulid.Make()
		repo.On("Get", ctx, userID, "gone").Return(nil, auth.ErrNotFound)

		_, err := mgr.Refresh(ctx, userID, "gone")
		assertKind(t, err, auth.KindUserSessionDoesNotExist)
	})
}
