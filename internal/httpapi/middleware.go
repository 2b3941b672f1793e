// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/logging"
	"github.com/holomush/authengine/internal/observability"
	"github.com/holomush/authengine/internal/token"
)

var tracer = otel.Tracer("authengine/httpapi")

// Header names.
const (
	HeaderAuthorization = "Authorization"
	HeaderDeviceID      = "device-id"
)

const bearerPrefix = "Bearer "

// Decision outcomes recorded by the session middleware.
const (
	DecisionAccepted  = "accepted"
	DecisionRefreshed = "refreshed"
	DecisionRejected  = "rejected"
	DecisionAnonymous = "anonymous"
	DecisionSignedIn  = "already_signed_in"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    ulid.ULID
	SessionID string
}

type identityKey struct{}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// SessionCodec is the part of the token codec the middleware uses.
type SessionCodec interface {
	Verify(raw string, t token.Type) bool
	DecodeSession(raw string) (token.SessionClaims, error)
}

// SessionRefresher mints a fresh access token from a stored session.
type SessionRefresher interface {
	Refresh(ctx context.Context, userID ulid.ULID, sessionID string) (string, error)
}

// SessionMiddleware authenticates requests by their access token and
// silently refreshes expired ones from the stored session.
type SessionMiddleware struct {
	codec    SessionCodec
	sessions SessionRefresher
	logger   *slog.Logger
}

// NewSessionMiddleware creates a SessionMiddleware.
func NewSessionMiddleware(codec SessionCodec, sessions SessionRefresher, logger *slog.Logger) *SessionMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionMiddleware{codec: codec, sessions: sessions, logger: logger}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	return tok, tok != "" && !strings.ContainsAny(tok, " \t")
}

// Authenticate requires a valid session. An expired access token is
// replaced using the session's refresh token and the new one is returned in
// the Authorization response header.
func (m *SessionMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, span := tracer.Start(req.Context(), "auth.authenticate")
			defer span.End()

			reject := func(err error) error {
				observability.RecordAuthDecision(DecisionRejected)
				span.SetAttributes(attribute.String("auth.outcome", DecisionRejected))
				span.SetStatus(codes.Error, string(auth.KindOf(err)))
				return WriteError(c, m.logger, err)
			}

			header := req.Header.Get(HeaderAuthorization)
			if header == "" {
				return reject(failKind(auth.KindAuthorizationHeaderMissing, "authorization header missing"))
			}
			access, ok := bearerToken(header)
			if !ok {
				return reject(failKind(auth.KindUserNotAuthorized, "user not authorized"))
			}
			claims, err := m.codec.DecodeSession(access)
			if err != nil {
				return reject(failKind(auth.KindUserNotAuthorized, "user not authorized"))
			}

			id := Identity{UserID: claims.UserID, SessionID: claims.SessionID}
			ctx = context.WithValue(ctx, identityKey{}, id)
			ctx = logging.WithIdentity(ctx, id.UserID.String(), id.SessionID)
			span.SetAttributes(attribute.String("auth.session_id", id.SessionID))

			outcome := DecisionAccepted
			if !m.codec.Verify(access, token.Access) {
				fresh, err := m.sessions.Refresh(ctx, id.UserID, id.SessionID)
				if err != nil {
					return reject(err)
				}
				c.Response().Header().Set(HeaderAuthorization, bearerPrefix+fresh)
				outcome = DecisionRefreshed
			}

			observability.RecordAuthDecision(outcome)
			span.SetAttributes(attribute.String("auth.outcome", outcome))
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// ValidateCurrentSession rejects callers that already hold a valid access
// token. Everyone else passes through.
func (m *SessionMiddleware) ValidateCurrentSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			access, ok := bearerToken(c.Request().Header.Get(HeaderAuthorization))
			if ok && m.codec.Verify(access, token.Access) {
				observability.RecordAuthDecision(DecisionSignedIn)
				return WriteError(c, m.logger, failKind(auth.KindAlreadyLoggedIn, "already logged in"))
			}
			observability.RecordAuthDecision(DecisionAnonymous)
			return next(c)
		}
	}
}

// RequireDeviceID rejects requests without a device-id header.
func RequireDeviceID(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.TrimSpace(c.Request().Header.Get(HeaderDeviceID)) == "" {
				return WriteError(c, logger, failKind(auth.KindDeviceHeaderMissing, "device-id header missing"))
			}
			return next(c)
		}
	}
}

// RequestLogger logs every request and records it in metrics.
func RequestLogger(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			elapsed := time.Since(start)
			metrics.ObserveRequest(route, status, elapsed)
			logger.InfoContext(c.Request().Context(), "request",
				"method", c.Request().Method,
				"route", route,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
			)
			return nil
		}
	}
}
