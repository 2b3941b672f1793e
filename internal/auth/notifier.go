// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
)

// NotificationKind names the message a user should receive.
type NotificationKind string

// Notification kinds.
const (
	NotifyEmailVerification NotificationKind = "email_verification"
	NotifyEmailChange       NotificationKind = "email_change"
	NotifyPasswordReset     NotificationKind = "password_reset"
	NotifyDeviceCode        NotificationKind = "device_code"
	NotifyAccountDeletion   NotificationKind = "account_deletion"
)

// Notification carries an out-of-band secret to a user. Exactly one of
// Token or Code is set.
type Notification struct {
	Kind   NotificationKind
	UserID ulid.ULID
	Email  string
	Token  string
	Code   string
}

// Notifier delivers notifications, typically by email.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a logger. It is the development
// delivery channel; secrets are only logged at debug level.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(ctx context.Context, msg Notification) error {
	n.logger.InfoContext(ctx, "notification queued",
		"kind", string(msg.Kind),
		"user_id", msg.UserID.String(),
		"email", msg.Email,
	)
	n.logger.DebugContext(ctx, "notification secret",
		"kind", string(msg.Kind),
		"token", msg.Token,
		"code", msg.Code,
	)
	return nil
}
