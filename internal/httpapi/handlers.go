// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/holomush/authengine/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type deviceConfirmRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type emailChangeRequest struct {
	NewEmail string `json:"newEmail"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type passwordResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionResponse is returned whenever a session is issued.
type SessionResponse struct {
	UserID      string    `json:"userId"`
	SessionID   string    `json:"sessionId"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ChallengeResponse is returned when a login needs device confirmation.
type ChallengeResponse struct {
	ChallengeID string `json:"challengeId"`
	Token       string `json:"token"`
}

type sessionSummary struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

type countResponse struct {
	Deleted int64 `json:"deleted"`
}

type deletionResponse struct {
	Deleted bool `json:"deleted"`
}

type handlers struct {
	authenticator *auth.Authenticator
	sessions      *auth.SessionManager
	confirmations *auth.Confirmations
	logger        *slog.Logger
}

func newSessionResponse(s *auth.IssuedSession) SessionResponse {
	return SessionResponse{
		UserID:      s.UserID.String(),
		SessionID:   s.SessionID,
		AccessToken: s.AccessToken,
		ExpiresAt:   s.ExpiresAt,
	}
}

// bind decodes the JSON body. A malformed body is reported as missing
// inputs so clients see one error kind for unusable requests.
func (h *handlers) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return failKind(auth.KindMissingInputs, "request body is not valid JSON")
	}
	return nil
}

func (h *handlers) fail(c echo.Context, err error) error {
	return WriteError(c, h.logger, err)
}

func (h *handlers) identity(c echo.Context) (Identity, error) {
	id, ok := IdentityFrom(c.Request().Context())
	if !ok {
		return Identity{}, failKind(auth.KindUserNotAuthorized, "user not authorized")
	}
	return id, nil
}

func (h *handlers) register(c echo.Context) error {
	var req credentialsRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	user, err := h.authenticator.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, userResponse{ID: user.ID.String(), Email: user.Email})
}

func (h *handlers) login(c echo.Context) error {
	var req credentialsRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	deviceID := c.Request().Header.Get(HeaderDeviceID)
	result, err := h.authenticator.Login(c.Request().Context(), req.Email, req.Password, deviceID)
	if err != nil {
		return h.fail(c, err)
	}
	if result.Challenge != nil {
		return c.JSON(http.StatusAccepted, ChallengeResponse{
			ChallengeID: result.Challenge.ChallengeID.String(),
			Token:       result.Challenge.Token,
		})
	}
	return c.JSON(http.StatusOK, newSessionResponse(result.Session))
}

func (h *handlers) logout(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.authenticator.Logout(c.Request().Context(), id.UserID, id.SessionID); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) logoutAll(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := h.authenticator.LogoutAll(c.Request().Context(), id.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, countResponse{Deleted: n})
}

func (h *handlers) listSessions(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	sessions, err := h.sessions.ListSessions(c.Request().Context(), id.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{
			SessionID: s.SessionID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.SessionID == id.SessionID,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) confirmDevice(c echo.Context) error {
	var req deviceConfirmRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	deviceID := c.Request().Header.Get(HeaderDeviceID)
	issued, err := h.confirmations.ConfirmDevice(c.Request().Context(), req.Token, req.Code, deviceID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(issued))
}

func (h *handlers) requestEmailVerification(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	if _, err := h.confirmations.IssueEmailVerification(c.Request().Context(), id.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *handlers) verifyEmail(c echo.Context) error {
	var req tokenRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.confirmations.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) requestEmailChange(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req emailChangeRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if _, err := h.confirmations.RequestEmailChange(c.Request().Context(), id.UserID, req.NewEmail); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *handlers) confirmEmailChange(c echo.Context) error {
	var req tokenRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.confirmations.ConfirmEmailChange(c.Request().Context(), req.Token); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// forgotPassword answers 202 whether or not the address exists.
func (h *handlers) forgotPassword(c echo.Context) error {
	var req emailRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if _, err := h.confirmations.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *handlers) resetPassword(c echo.Context) error {
	var req passwordResetRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.confirmations.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) requestAccountDeletion(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req passwordRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	outcome, err := h.confirmations.RequestAccountDeletion(c.Request().Context(), id.UserID, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	if outcome.Deleted {
		return c.JSON(http.StatusOK, deletionResponse{Deleted: true})
	}
	return c.JSON(http.StatusAccepted, deletionResponse{Deleted: false})
}

func (h *handlers) confirmAccountDeletion(c echo.Context) error {
	var req tokenRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := h.confirmations.ConfirmAccountDeletion(c.Request().Context(), req.Token); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
