// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authengine/pkg/errutil"
)

// DefaultSweepInterval is how often the sweeper runs when no interval is set.
const DefaultSweepInterval = 5 * time.Minute

// Sweep targets, used as metric labels and report keys.
const (
	SweepDeviceVerifications = "device_verifications"
	SweepUserDevices         = "user_devices"
	SweepBlacklistedTokens   = "blacklisted_tokens"
	SweepSessions            = "sessions"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Deleted map[string]int64
	Failed  []string
}

// Sweeper removes expired challenges, devices, blacklist receipts and
// sessions in the background.
type Sweeper struct {
	devices   *DeviceVerifier
	blacklist BlacklistRepository
	sessions  SessionRepository
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper. A non-positive interval uses DefaultSweepInterval.
func NewSweeper(devices *DeviceVerifier, blacklist BlacklistRepository, sessions SessionRepository, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if devices == nil {
		return nil, oops.Errorf("device verifier is required")
	}
	if blacklist == nil {
		return nil, oops.Errorf("blacklist repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		devices:   devices,
		blacklist: blacklist,
		sessions:  sessions,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// SweepOnce runs every cleanup step. A failing step is logged and does not
// stop the others.
func (s *Sweeper) SweepOnce(ctx context.Context) SweepReport {
	report := SweepReport{Deleted: make(map[string]int64, 4)}
	now := s.now()

	steps := []struct {
		target string
		run    func(context.Context) (int64, error)
	}{
		{SweepDeviceVerifications, s.devices.RemoveExpiredDeviceVerifications},
		{SweepUserDevices, s.devices.RemoveExpiredDevices},
		{SweepBlacklistedTokens, func(ctx context.Context) (int64, error) {
			return s.blacklist.DeleteExpired(ctx, now)
		}},
		{SweepSessions, func(ctx context.Context) (int64, error) {
			return s.sessions.DeleteExpired(ctx, now)
		}},
	}

	for _, step := range steps {
		n, err := step.run(ctx)
		report.Deleted[step.target] = n
		if n > 0 {
			SweepDeleted.WithLabelValues(step.target).Add(float64(n))
		}
		if err != nil {
			report.Failed = append(report.Failed, step.target)
			errutil.LogError(s.logger, "sweep step failed", oops.With("target", step.target).Wrap(err))
		}
	}

	s.logger.DebugContext(ctx, "sweep finished",
		"deleted", report.Deleted,
		"failed", report.Failed,
	)
	return report
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}
