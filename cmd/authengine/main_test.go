// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/auth/postgres"
	"github.com/holomush/authengine/internal/config"
	"github.com/holomush/authengine/internal/store"
	"github.com/holomush/authengine/internal/token"
	"github.com/holomush/authengine/pkg/errutil"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.URL = "postgres://localhost/authengine"
	for i, tc := range []*config.TokenConfig{
		&cfg.Tokens.Access, &cfg.Tokens.Refresh, &cfg.Tokens.EmailVerify, &cfg.Tokens.EmailChange,
		&cfg.Tokens.ResetPassword, &cfg.Tokens.DeviceVerify, &cfg.Tokens.UserDeletion,
	} {
		tc.Secret = strings.Repeat(string(rune('a'+i)), 32)
	}
	return &cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "sweep"})
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("database.url"))
}

func TestServe_RejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "serve", "--database.url", "postgres://localhost/authengine")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

type fakeMigrator struct {
	version uint
	dirty   bool
	upErr   error
	forced  int
	closed  bool
}

func (f *fakeMigrator) Up() error {
	if f.upErr != nil {
		return f.upErr
	}
	f.version = 5
	return nil
}

func (f *fakeMigrator) Down() error { f.version = 0; return nil }

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, nil }

func (f *fakeMigrator) Status() (store.Status, error) {
	all, err := store.Migrations()
	if err != nil {
		return store.Status{}, err
	}
	s := store.Status{Version: f.version, Dirty: f.dirty}
	for _, m := range all {
		if m.Version <= f.version {
			s.Applied = append(s.Applied, m)
		} else {
			s.Pending = append(s.Pending, m)
		}
	}
	return s, nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	f.version = uint(v) //nolint:gosec // test input is non-negative
	f.dirty = false
	return nil
}

func (f *fakeMigrator) Close() error { f.closed = true; return nil }

func withFakeMigrator(t *testing.T, f *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	orig := newMigrator
	newMigrator = func(url string) (migrator, error) {
		gotURL = url
		return f, nil
	}
	t.Cleanup(func() { newMigrator = orig })
	return &gotURL
}

func TestMigrateCmd(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		f := &fakeMigrator{}
		url := withFakeMigrator(t, f)
		out, err := execute(t, "migrate", "up", "--database.url", "postgres://db/authengine")
		require.NoError(t, err)
		assert.Contains(t, out, "schema version 5")
		assert.Equal(t, "postgres://db/authengine", *url)
		assert.True(t, f.closed)
	})

	t.Run("status", func(t *testing.T) {
		withFakeMigrator(t, &fakeMigrator{version: 2, dirty: true})
		out, err := execute(t, "migrate", "status", "--database.url", "postgres://db/authengine")
		require.NoError(t, err)
		assert.Contains(t, out, "applied  000002_sessions")
		assert.Contains(t, out, "pending  000003_")
		assert.Contains(t, out, "dirty")
	})

	t.Run("force", func(t *testing.T) {
		f := &fakeMigrator{version: 4, dirty: true}
		withFakeMigrator(t, f)
		out, err := execute(t, "migrate", "force", "3", "--database.url", "postgres://db/authengine")
		require.NoError(t, err)
		assert.Equal(t, 3, f.forced)
		assert.Contains(t, out, "schema version 3")
	})

	t.Run("force needs a number", func(t *testing.T) {
		withFakeMigrator(t, &fakeMigrator{})
		_, err := execute(t, "migrate", "force", "three", "--database.url", "postgres://db/authengine")
		errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	})

	t.Run("up failure", func(t *testing.T) {
		withFakeMigrator(t, &fakeMigrator{upErr: errors.New("boom")})
		_, err := execute(t, "migrate", "up", "--database.url", "postgres://db/authengine")
		require.Error(t, err)
	})

	t.Run("needs a database url", func(t *testing.T) {
		t.Setenv("AUTHENGINE_DATABASE__URL", "")
		withFakeMigrator(t, &fakeMigrator{})
		_, err := execute(t, "migrate", "version")
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("rejects the memory store", func(t *testing.T) {
		withFakeMigrator(t, &fakeMigrator{})
		_, err := execute(t, "migrate", "up", "--database.driver", "memory", "--database.url", "postgres://db/authengine")
		errutil.AssertErrorContext(t, err, "key", "database.driver")
	})
}

func TestBuildApp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a, err := buildApp(testConfig(), postgresRepositories(postgres.New(mock)), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, a.authenticator)
	assert.NotNil(t, a.confirmations)
	assert.NotNil(t, a.sweeper)
	assert.Equal(t, 15*time.Minute, a.codec.Lifespan(token.Access))

	// Nothing touches the database while wiring.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildApp_InvalidConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := testConfig()
	cfg.Sessions.IDAlphabet = "a"
	_, err = buildApp(cfg, postgresRepositories(postgres.New(mock)), nil, nil)
	errutil.AssertErrorCode(t, err, "ID_ALPHABET_INVALID")
}

func TestOpenStore_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Database.Driver = config.DriverMemory
	cfg.Database.URL = ""
	cfg.Hasher.MemoryKiB = 1024
	cfg.Hasher.Time = 1

	repos, ready, closeStore, err := openStore(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer closeStore()
	assert.True(t, ready())

	a, err := buildApp(cfg, repos, nil, nil)
	require.NoError(t, err)

	user, err := a.authenticator.Register(ctx, "ada@example.com", "hunter2hunter2")
	require.NoError(t, err)
	stored, err := repos.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", stored.Email)

	result, err := a.authenticator.Login(ctx, "ada@example.com", "hunter2hunter2", "laptop")
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)
}

func TestSweep_RejectsMemoryDriver(t *testing.T) {
	setTokenSecrets(t)
	_, err := execute(t, "sweep", "--database.driver", "memory")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "database.driver")
}

// setTokenSecrets supplies every token secret through the environment.
func setTokenSecrets(t *testing.T) {
	t.Helper()
	for i, name := range []string{"ACCESS", "REFRESH", "EMAIL_VERIFY", "EMAIL_CHANGE", "RESET_PASSWORD", "DEVICE_VERIFY", "USER_DELETION"} {
		t.Setenv("AUTHENGINE_TOKENS__"+name+"__SECRET", strings.Repeat(string(rune('a'+i)), 32))
	}
}

func TestOpenLedger_Disabled(t *testing.T) {
	ledger, closeFn, err := openLedger(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, ledger)
	assert.NoError(t, closeFn())
}

func TestOpenLedger_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := openLedger(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	errutil.AssertErrorCode(t, err, "REDIS_UNREACHABLE")
}

func TestPrintSweep(t *testing.T) {
	cmd := NewSweepCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	report := auth.SweepReport{Deleted: map[string]int64{
		auth.SweepSessions:            3,
		auth.SweepBlacklistedTokens:   1,
		auth.SweepDeviceVerifications: 0,
	}}
	require.NoError(t, printSweep(cmd, report))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], auth.SweepBlacklistedTokens))
	assert.True(t, strings.HasPrefix(lines[2], auth.SweepSessions))

	report.Failed = []string{auth.SweepSessions}
	errutil.AssertErrorCode(t, printSweep(cmd, report), "SWEEP_FAILED")
}

func TestMonitorServerErrors(t *testing.T) {
	t.Run("cancels on error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error, 1)
		errCh <- errors.New("listener died")
		monitorServerErrors(ctx, cancel, errCh, "http")
		assert.Error(t, ctx.Err())
	})

	t.Run("closed channel leaves ctx alone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error)
		close(errCh)
		monitorServerErrors(ctx, cancel, errCh, "http")
		assert.NoError(t, ctx.Err())
	})
}

func TestPoolOptions(t *testing.T) {
	opts := poolOptions(config.DatabaseConfig{MaxConns: 8, MinConns: 2, ConnectRetries: 1})
	assert.Equal(t, int32(8), opts.MaxConns)
	assert.Equal(t, int32(2), opts.MinConns)
	assert.Equal(t, uint64(1), opts.ConnectRetries)
	assert.Equal(t, store.DefaultPoolOptions().PingTimeout, opts.PingTimeout)
}
