// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authengine/internal/token"
)

type stubCodec struct {
	valid  bool
	claims token.SessionClaims
	err    error
}

func (s stubCodec) Verify(string, token.Type) bool { return s.valid }

func (s stubCodec) DecodeSession(string) (token.SessionClaims, error) { return s.claims, s.err }

type stubRefresher struct {
	fresh string
	err   error
	calls int
}

func (s *stubRefresher) Refresh(context.Context, ulid.ULID, string) (string, error) {
	s.calls++
	return s.fresh, s.err
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer  abc", "abc", true},
		{"bearer abc", "", false},
		{"Bearer ", "", false},
		{"Bearer a b", "a b", false},
		{"Token abc", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		if tt.ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func runAuthenticate(t *testing.T, mw *SessionMiddleware) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderAuthorization, "Bearer tok")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Identity
	handler := mw.Authenticate()(func(c echo.Context) error {
		id, ok := IdentityFrom(c.Request().Context())
		require.True(t, ok)
		seen = &id
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, seen
}

func TestAuthenticate_ValidTokenSkipsStore(t *testing.T) {
	userID := ulid.Make()
	refresher := &stubRefresher{}
	mw := NewSessionMiddleware(stubCodec{valid: true, claims: token.SessionClaims{UserID: userID, SessionID: "s1"}}, refresher, nil)

	rec, id := runAuthenticate(t, mw)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, id)
	assert.Equal(t, Identity{UserID: userID, SessionID: "s1"}, *id)
	assert.Zero(t, refresher.calls)
}

func TestAuthenticate_RefreshFailureIsInternal(t *testing.T) {
	refresher := &stubRefresher{err: errors.New("connection reset")}
	mw := NewSessionMiddleware(stubCodec{claims: token.SessionClaims{UserID: ulid.Make(), SessionID: "s1"}}, refresher, nil)

	rec, id := runAuthenticate(t, mw)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, id)
	assert.Equal(t, 1, refresher.calls)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestAuthenticate_SetsRefreshedHeader(t *testing.T) {
	refresher := &stubRefresher{fresh: "new-access"}
	mw := NewSessionMiddleware(stubCodec{claims: token.SessionClaims{UserID: ulid.Make(), SessionID: "s1"}}, refresher, nil)

	rec, id := runAuthenticate(t, mw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, id)
	assert.Equal(t, "Bearer new-access", rec.Header().Get(HeaderAuthorization))
}
