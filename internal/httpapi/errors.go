// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/pkg/errutil"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindAuthorizationHeaderMissing,
		auth.KindUserNotAuthorized,
		auth.KindUserSessionDoesNotExist,
		auth.KindUserSessionExpired,
		auth.KindInvalidCredentials:
		return http.StatusUnauthorized
	case auth.KindDeviceHeaderMissing, auth.KindMissingInputs, auth.KindInvalid:
		return http.StatusBadRequest
	case auth.KindRequestExpired:
		return http.StatusGone
	case auth.KindRequestAlreadyUsed, auth.KindAlreadyLoggedIn:
		return http.StatusConflict
	case auth.KindDoesNotExist:
		return http.StatusNotFound
	case auth.KindAccountLocked:
		return http.StatusLocked
	case auth.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func failKind(kind auth.Kind, msg string) error {
	return oops.Code(string(kind)).Errorf("%s", msg)
}

// WriteError renders err as an ErrorBody. Internal errors are logged and
// their message is replaced so store details never reach the client.
func WriteError(c echo.Context, logger *slog.Logger, err error) error {
	kind := auth.KindOf(err)
	body := ErrorBody{Code: string(kind), Message: err.Error()}
	if kind == auth.KindInternal {
		if logger == nil {
			logger = slog.Default()
		}
		errutil.LogErrorContext(c.Request().Context(), logger, "request failed", err)
		body.Message = "internal server error"
	}
	return c.JSON(StatusFor(kind), body)
}

// errorHandler renders errors returned by handlers and the router itself.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			body := ErrorBody{Code: http.StatusText(he.Code), Message: http.StatusText(he.Code)}
			if msg, ok := he.Message.(string); ok {
				body.Message = msg
			}
			_ = c.JSON(he.Code, body) //nolint:errcheck // client may have gone away
			return
		}
		_ = WriteError(c, logger, err) //nolint:errcheck // client may have gone away
	}
}
