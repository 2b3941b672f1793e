// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the auth engine over HTTP: the session middleware,
// the error-kind to status mapping and the credential endpoints.
package httpapi

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/observability"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Authenticator *auth.Authenticator
	Sessions      *auth.SessionManager
	Confirmations *auth.Confirmations
	Codec         auth.TokenCodec
	Metrics       *observability.Metrics
	Logger        *slog.Logger
}

// New builds the router with every endpoint registered.
func New(deps Deps) (*echo.Echo, error) {
	switch {
	case deps.Authenticator == nil:
		return nil, oops.Errorf("authenticator is required")
	case deps.Sessions == nil:
		return nil, oops.Errorf("session manager is required")
	case deps.Confirmations == nil:
		return nil, oops.Errorf("confirmations are required")
	case deps.Codec == nil:
		return nil, oops.Errorf("token codec is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(RequestLogger(logger, deps.Metrics))

	h := &handlers{
		authenticator: deps.Authenticator,
		sessions:      deps.Sessions,
		confirmations: deps.Confirmations,
		logger:        logger,
	}
	mw := NewSessionMiddleware(deps.Codec, deps.Sessions, logger)
	authenticated := mw.Authenticate()
	device := RequireDeviceID(logger)

	g := e.Group("/auth")
	g.POST("/register", h.register, mw.ValidateCurrentSession())
	g.POST("/login", h.login, mw.ValidateCurrentSession(), device)
	g.POST("/logout", h.logout, authenticated)
	g.POST("/logout-all", h.logoutAll, authenticated)
	g.GET("/sessions", h.listSessions, authenticated)
	g.POST("/device/confirm", h.confirmDevice, device)
	g.POST("/email/verify/request", h.requestEmailVerification, authenticated)
	g.POST("/email/verify", h.verifyEmail)
	g.POST("/email/change", h.requestEmailChange, authenticated)
	g.POST("/email/change/confirm", h.confirmEmailChange)
	g.POST("/password/forgot", h.forgotPassword)
	g.POST("/password/reset", h.resetPassword)
	g.POST("/account/delete", h.requestAccountDeletion, authenticated)
	g.POST("/account/delete/confirm", h.confirmAccountDeletion)

	return e, nil
}
