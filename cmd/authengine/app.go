// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/auth/memory"
	"github.com/holomush/authengine/internal/auth/postgres"
	"github.com/holomush/authengine/internal/auth/redisstore"
	"github.com/holomush/authengine/internal/config"
	"github.com/holomush/authengine/internal/token"
)

// app holds every service of the engine, wired over one database.
type app struct {
	codec         *token.Codec
	sessions      *auth.SessionManager
	devices       *auth.DeviceVerifier
	confirmations *auth.Confirmations
	authenticator *auth.Authenticator
	sweeper       *auth.Sweeper
}

// repositories is one credential store's view of every repository plus
// its unit of work.
type repositories struct {
	users      auth.UserRepository
	sessions   auth.SessionRepository
	blacklist  auth.BlacklistRepository
	challenges auth.DeviceVerificationRepository
	devices    auth.UserDeviceRepository
	uow        auth.UnitOfWork
}

func postgresRepositories(db *postgres.DB) repositories {
	return repositories{
		users:      db.Users(),
		sessions:   db.Sessions(),
		blacklist:  db.Blacklist(),
		challenges: db.DeviceVerifications(),
		devices:    db.UserDevices(),
		uow:        db,
	}
}

func memoryRepositories(s *memory.Store) repositories {
	return repositories{
		users:      s.Users(),
		sessions:   s.Sessions(),
		blacklist:  s.Blacklist(),
		challenges: s.DeviceVerifications(),
		devices:    s.UserDevices(),
		uow:        s,
	}
}

// buildApp is the composition root. ledger is where single-use tokens are
// recorded as redeemed; nil uses the store's own blacklist.
func buildApp(cfg *config.Config, repos repositories, ledger auth.BlacklistRepository, logger *slog.Logger) (*app, error) {
	if ledger == nil {
		ledger = repos.blacklist
	}

	codec, err := token.NewCodec(cfg.TokenKeys())
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "codec").Wrap(err)
	}
	hasher, err := auth.NewArgon2idHasher(cfg.HasherParams())
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "hasher").Wrap(err)
	}
	ids, err := auth.NewIDGenerator(cfg.Sessions.IDAlphabet, cfg.Sessions.IDLength)
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "session ids").Wrap(err)
	}
	sessions, err := auth.NewSessionManager(repos.sessions, codec, ids)
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "sessions").Wrap(err)
	}
	guard, err := auth.NewGuard(ledger, cfg.Guard.CacheCapacity)
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "guard").Wrap(err)
	}
	devices, err := auth.NewDeviceVerifier(auth.DeviceVerifierDeps{
		Challenges: repos.challenges,
		Devices:    repos.devices,
		Users:      repos.users,
		Codec:      codec,
		Hasher:     hasher,
		UnitOfWork: repos.uow,
		Logger:     logger,
	})
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "devices").Wrap(err)
	}
	notifier := auth.NewLogNotifier(logger)
	confirmations, err := auth.NewConfirmations(auth.ConfirmationsDeps{
		Users:      repos.users,
		Sessions:   sessions,
		Devices:    devices,
		Guard:      guard,
		Codec:      codec,
		Hasher:     hasher,
		UnitOfWork: repos.uow,
		Notifier:   notifier,
		Logger:     logger,
	})
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "confirmations").Wrap(err)
	}
	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorDeps{
		Users:    repos.users,
		Sessions: sessions,
		Devices:  devices,
		Hasher:   hasher,
		Notifier: notifier,
		Lockout:  cfg.LockoutPolicy(),
		Logger:   logger,
	})
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "authenticator").Wrap(err)
	}
	sweeper, err := auth.NewSweeper(devices, ledger, repos.sessions, cfg.Sweep.Interval, logger)
	if err != nil {
		return nil, oops.Code("APP_INIT_FAILED").With("component", "sweeper").Wrap(err)
	}

	return &app{
		codec:         codec,
		sessions:      sessions,
		devices:       devices,
		confirmations: confirmations,
		authenticator: authenticator,
		sweeper:       sweeper,
	}, nil
}

// openLedger connects the Redis ledger when one is configured. It returns
// a nil ledger and a no-op close otherwise.
func openLedger(ctx context.Context, cfg config.RedisConfig) (auth.BlacklistRepository, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Enabled() {
		return nil, noop, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ledger, err := redisstore.NewBlacklistRepository(client, cfg.Prefix)
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	if err := ledger.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	return ledger, client.Close, nil
}
